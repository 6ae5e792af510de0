package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

func sampleReport() *Report {
	r := NewReport("enhanced_academic_report", "Enhanced Academic Analysis Report", "papers", 4)
	r.AddOverview("Publication Range", "2019-2024")
	r.AddSection(Section{
		Title: "Vulnerability Focus in Research",
		Icon:  "🔴",
		Label: "Vulnerability Category",
		Rows: analysis.RankCounts(map[string]int{
			"reentrancy": 3, "overflow": 1, "dos": 0,
		}, 4),
		Limit: 2,
	})
	r.Gap = &analysis.Gap{
		WellCovered:  []string{"reentrancy"},
		OnlyAcademic: []string{"overflow"},
		OnlyPractice: []string{},
	}
	r.AddFinding("Reentrancy: 1 contracts at risk")
	return r
}

func TestTextGenerator(t *testing.T) {
	out, err := NewTextGenerator().Generate(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, out, "ENHANCED ACADEMIC ANALYSIS REPORT")
	assert.Contains(t, out, "Papers Analyzed: 4")
	assert.Contains(t, out, "Publication Range: 2019-2024")
	assert.Contains(t, out, "reentrancy                :  3 papers ( 75.0%)")
	assert.Contains(t, out, "overflow                  :  1 papers ( 25.0%)")
	assert.NotContains(t, out, "dos ")
	assert.Contains(t, out, "Well-covered (both academic & practice): reentrancy")
	assert.NotContains(t, out, "Practice issue")
	assert.Contains(t, out, "• Reentrancy: 1 contracts at risk")
	assert.NotContains(t, out, "No records processed")

	// box lines have equal width
	var boxLines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "╔") || strings.HasPrefix(line, "║") || strings.HasPrefix(line, "╚") {
			boxLines = append(boxLines, line)
		}
	}
	require.Len(t, boxLines, 3)
	assert.Equal(t, len([]rune(boxLines[0])), len([]rune(boxLines[1])))
}

func TestTextGenerator_ZeroRecords(t *testing.T) {
	r := NewReport("vulnerability_report", "Vulnerability Analysis Report", "contracts", 0)
	r.AddSection(Section{Title: "Patterns", Rows: analysis.Rank(analysis.MatchResult{}, 0)})

	out, err := NewTextGenerator().Generate(r)
	require.NoError(t, err)
	assert.Contains(t, out, "Contracts Analyzed: 0")
	assert.Contains(t, out, "No records processed")
	assert.Contains(t, out, "(none)")
}

func TestMarkdownGenerator(t *testing.T) {
	out, err := NewMarkdownGenerator().Generate(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, out, "# Enhanced Academic Analysis Report")
	assert.Contains(t, out, "| Vulnerability Category | Papers | Percentage |")
	assert.Contains(t, out, "| 🔴 reentrancy | 3 | 75.0% |")
	assert.Contains(t, out, "- **Well-covered**: reentrancy")
}

func TestJSONGenerator_PrefersData(t *testing.T) {
	r := sampleReport()
	r.Data = map[string]any{"papers_analyzed": 4}

	out, err := NewJSONGenerator().Generate(r)
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got["papers_analyzed"])
}

func TestNewGenerator(t *testing.T) {
	for format, ext := range map[string]string{"": ".txt", "text": ".txt", "md": ".md", "markdown": ".md", "json": ".json"} {
		g, err := NewGenerator(format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, g.Ext())
	}
	_, err := NewGenerator("pdf")
	assert.Error(t, err)
}

func TestSaveAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "4_reports")
	paths, err := SaveAll(sampleReport(), NewFileStorage(dir), FormatText, FormatMarkdown)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "enhanced_academic_report.txt"), paths[0])
	assert.Equal(t, filepath.Join(dir, "enhanced_academic_report.md"), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "VULNERABILITY FOCUS IN RESEARCH")
}

func TestWriteRowsCSV(t *testing.T) {
	var b strings.Builder
	rows := []analysis.Row{
		{Category: "reentrancy", Count: 2, Percentage: 50, MatchedIDs: []string{"1", "3"}},
		{Category: "dos", Count: 0, Percentage: 0},
	}
	require.NoError(t, WriteRowsCSV(&b, rows))
	assert.Equal(t, "category,count,percentage,matched_ids\nreentrancy,2,50.0,1;3\ndos,0,0.0,\n", b.String())
}
