package renderers

import (
	"fmt"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

// MarkdownRenderer markdown渲染器
type MarkdownRenderer struct{}

// NewMarkdownRenderer 创建markdown渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// RenderRows 渲染排名表
func (r *MarkdownRenderer) RenderRows(label, unit string, rows []analysis.Row) string {
	if label == "" {
		label = "Category"
	}
	var result strings.Builder
	result.WriteString(fmt.Sprintf("| %s | %s | Percentage |\n", label, capitalize(unit)))
	result.WriteString("|---|---:|---:|\n")
	for _, row := range rows {
		result.WriteString(fmt.Sprintf("| %s %s | %d | %.1f%% |\n",
			shareIcon(row.Percentage), escape(row.Category), row.Count, row.Percentage))
	}
	return result.String()
}

// RenderList 渲染带标题的列表，空列表不输出
func (r *MarkdownRenderer) RenderList(title string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return fmt.Sprintf("- **%s**: %s\n", title, strings.Join(items, ", "))
}

// shareIcon 按占比给出图标
func shareIcon(pct float64) string {
	switch {
	case pct >= 50:
		return "🔴"
	case pct >= 25:
		return "🟠"
	case pct >= 10:
		return "🟡"
	case pct > 0:
		return "🟢"
	default:
		return "⚪"
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
