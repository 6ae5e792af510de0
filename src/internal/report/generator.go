package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/admi-n/sc-security-research/src/internal/report/renderers"
)

// 支持的输出格式
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

const (
	boxWidth  = 62
	ruleWidth = 60
)

// Generator 报告生成器接口
type Generator interface {
	Generate(report *Report) (string, error)
	Ext() string
}

// NewGenerator 根据格式名创建生成器
func NewGenerator(format string) (Generator, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "txt":
		return NewTextGenerator(), nil
	case FormatMarkdown, "md":
		return NewMarkdownGenerator(), nil
	case FormatJSON:
		return NewJSONGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s (supported: text, markdown, json)", format)
	}
}

// TextGenerator 纯文本报告（带框标题）
type TextGenerator struct{}

// NewTextGenerator 创建文本报告生成器
func NewTextGenerator() *TextGenerator {
	return &TextGenerator{}
}

func (g *TextGenerator) Ext() string { return ".txt" }

// Generate 生成文本格式报告
func (g *TextGenerator) Generate(report *Report) (string, error) {
	var b strings.Builder
	rule := strings.Repeat("─", ruleWidth)

	b.WriteString("\n")
	b.WriteString("╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString("║" + padRight("     "+strings.ToUpper(report.Title), boxWidth) + "║\n")
	b.WriteString("╚" + strings.Repeat("═", boxWidth) + "╝\n\n")

	b.WriteString("📊 OVERVIEW\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%s Analyzed: %d\n", capitalize(report.Unit), report.TotalRecords)
	for _, kv := range report.Overview {
		fmt.Fprintf(&b, "%s: %s\n", kv.Key, kv.Value)
	}
	fmt.Fprintf(&b, "Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	if report.Empty() {
		b.WriteString("\n⚠️  No records processed (input missing or empty)\n")
	}

	for _, s := range report.Sections {
		b.WriteString("\n")
		if s.Icon != "" {
			b.WriteString(s.Icon + " ")
		}
		b.WriteString(strings.ToUpper(s.Title) + "\n")
		b.WriteString(rule + "\n")
		rows := s.visibleRows()
		if len(rows) == 0 {
			b.WriteString("(none)\n")
		}
		for _, r := range rows {
			fmt.Fprintf(&b, "%-*s : %2d %s (%5.1f%%)\n", s.width(), r.Category, r.Count, report.Unit, r.Percentage)
		}
	}

	if report.Gap != nil {
		b.WriteString("\n⚖️ ACADEMIC THEORY vs REAL CONTRACTS\n")
		b.WriteString(rule + "\n")
		writeGapLine(&b, "✅ Well-covered (both academic & practice)", report.Gap.WellCovered)
		writeGapLine(&b, "📚 Academic focus, low practice", report.Gap.OnlyAcademic)
		writeGapLine(&b, "⚠️ Practice issue, low academic focus", report.Gap.OnlyPractice)
	}

	if len(report.Findings) > 0 {
		b.WriteString("\n💡 KEY FINDINGS\n")
		b.WriteString(rule + "\n")
		for _, f := range report.Findings {
			b.WriteString("• " + f + "\n")
		}
	}

	b.WriteString("\n" + rule + "\n")
	return b.String(), nil
}

func writeGapLine(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, ", "))
}

// MarkdownGenerator markdown格式报告生成器
type MarkdownGenerator struct {
	renderer *renderers.MarkdownRenderer
}

// NewMarkdownGenerator 创建markdown报告生成器
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{renderer: renderers.NewMarkdownRenderer()}
}

func (g *MarkdownGenerator) Ext() string { return ".md" }

// Generate 生成markdown格式报告
func (g *MarkdownGenerator) Generate(report *Report) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", report.Title)
	fmt.Fprintf(&b, "**生成时间**: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**%s 总数**: %d\n", capitalize(report.Unit), report.TotalRecords)
	for _, kv := range report.Overview {
		fmt.Fprintf(&b, "**%s**: %s\n", kv.Key, kv.Value)
	}
	b.WriteString("\n")
	if report.Empty() {
		b.WriteString("> ⚠️ No records processed (input missing or empty)\n\n")
	}

	for _, s := range report.Sections {
		fmt.Fprintf(&b, "## %s\n\n", strings.TrimSpace(s.Icon+" "+s.Title))
		b.WriteString(g.renderer.RenderRows(s.Label, report.Unit, s.visibleRows()))
		b.WriteString("\n")
	}

	if report.Gap != nil {
		b.WriteString("## ⚖️ Academic Theory vs Real Contracts\n\n")
		b.WriteString(g.renderer.RenderList("Well-covered", report.Gap.WellCovered))
		b.WriteString(g.renderer.RenderList("Academic focus, low practice", report.Gap.OnlyAcademic))
		b.WriteString(g.renderer.RenderList("Practice issue, low academic focus", report.Gap.OnlyPractice))
		b.WriteString("\n")
	}

	if len(report.Findings) > 0 {
		b.WriteString("## 💡 Key Findings\n\n")
		for _, f := range report.Findings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	return b.String(), nil
}

// JSONGenerator 结构化输出，Data 非空时输出 Data
type JSONGenerator struct{}

// NewJSONGenerator 创建 JSON 报告生成器
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

func (g *JSONGenerator) Ext() string { return ".json" }

// Generate 生成 JSON 报告
func (g *JSONGenerator) Generate(report *Report) (string, error) {
	var v any = report
	if report.Data != nil {
		v = report.Data
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data) + "\n", nil
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}
