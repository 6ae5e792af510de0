package renderers

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))
)

// Console 控制台排名表渲染器；Plain 为 true 时不输出任何样式
type Console struct {
	Plain bool
}

// NewConsole 创建控制台渲染器
func NewConsole(plain bool) *Console {
	return &Console{Plain: plain}
}

// Banner 输出 ===== 包围的标题
func (c *Console) Banner(w io.Writer, title string) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, c.style(titleStyle, title), rule)
}

// Table 输出 "类别 | 计数 | 百分比 条形图" 表格，条形长度为 int(pct/3)
func (c *Console) Table(w io.Writer, title, label, unit string, width int, rows []analysis.Row) {
	if width <= 0 {
		width = 25
	}
	c.Banner(w, title)
	header := fmt.Sprintf("%-*s | %6s | Percentage", width, label, capitalize(unit))
	fmt.Fprintf(w, "\n%s\n%s\n", c.style(headerStyle, header), strings.Repeat("-", 70))
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s | %6d | %5.1f%% %s\n", width, r.Category, r.Count, r.Percentage, c.bar(r.Percentage, 3))
	}
}

// List 输出 "类别 : 计数 unit (百分比) 条形图"，条形长度为 int(pct/5)
func (c *Console) List(w io.Writer, title, unit string, width int, rows []analysis.Row) {
	if width <= 0 {
		width = 20
	}
	c.Banner(w, title)
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s : %2d %s (%5.1f%%) %s\n", width, r.Category, r.Count, unit, r.Percentage, c.bar(r.Percentage, 5))
	}
}

// Bar 百分比条形图
func Bar(pct, divisor float64) string {
	if divisor <= 0 || pct <= 0 {
		return ""
	}
	return strings.Repeat("█", int(pct/divisor))
}

func (c *Console) bar(pct, divisor float64) string {
	return c.style(barStyle, Bar(pct, divisor))
}

func (c *Console) style(s lipgloss.Style, text string) string {
	if c.Plain || text == "" {
		return text
	}
	return s.Render(text)
}
