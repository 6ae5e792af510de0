package renderers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(0, 3))
	assert.Equal(t, "", Bar(50, 0))
	assert.Equal(t, "██████", Bar(20, 3))
	assert.Equal(t, "████", Bar(20, 5))
}

func TestConsole_PlainTable(t *testing.T) {
	var buf bytes.Buffer
	rows := analysis.RankCounts(map[string]int{"reentrancy": 3, "overflow": 3, "dos": 0}, 15)

	NewConsole(true).Table(&buf, "🔍 SEMANTIC VULNERABILITY ANALYSIS", "Vulnerability Category", "papers", 25, rows)
	out := buf.String()

	assert.Contains(t, out, "Vulnerability Category    | Papers | Percentage")
	assert.Contains(t, out, "overflow                  |      3 |  20.0% ██████")
	// tie broken by label
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("overflow")), bytes.Index(buf.Bytes(), []byte("reentrancy")))
	assert.Contains(t, out, "dos                       |      0 |   0.0% \n")
}

func TestConsole_PlainList(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(true).List(&buf, "🔑 TOP SECURITY KEYWORDS IN PAPERS", "papers", 20,
		[]analysis.Row{{Category: "vulnerability", Count: 10, Percentage: 100}})
	assert.Contains(t, buf.String(), "vulnerability        : 10 papers (100.0%) ████████████████████")
}

func TestMarkdownRenderer(t *testing.T) {
	r := NewMarkdownRenderer()
	out := r.RenderRows("", "contracts", []analysis.Row{{Category: "a|b", Count: 1, Percentage: 12.5}})
	assert.Contains(t, out, "| Category | Contracts | Percentage |")
	assert.Contains(t, out, `| 🟡 a\|b | 1 | 12.5% |`)
	assert.Equal(t, "", r.RenderList("x", nil))
}
