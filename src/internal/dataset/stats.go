package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

// Stats 合并后数据集的统计
type Stats struct {
	Total       int            `json:"total"`
	Categories  map[string]int `json:"categories"`
	HasVerified bool           `json:"-"` // 至少一条记录带 verified 字段
	Verified    int            `json:"verified"`
	Unverified  int            `json:"unverified"`
	WithSource  int            `json:"with_source"`
}

// ComputeStats 统计类别分布、验证状态与源码覆盖
func ComputeStats(contracts []internal.Contract) Stats {
	s := Stats{Total: len(contracts), Categories: map[string]int{}}
	for _, c := range contracts {
		category := c.Category
		if category == "" {
			category = internal.CategoryUnknown
		}
		s.Categories[category]++
		if c.Verified != nil {
			s.HasVerified = true
			if *c.Verified {
				s.Verified++
			}
		}
		if c.HasSource() {
			s.WithSource++
		}
	}
	s.Unverified = s.Total - s.Verified
	return s
}

// Distribution 类别分布（计数降序，类别名升序）
func (s Stats) Distribution() []analysis.Row {
	return analysis.RankCounts(s.Categories, s.Total)
}

// Print 输出统计到控制台
func (s Stats) Print(w io.Writer) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(w, "\n%s\n📊 FINAL DATASET STATISTICS\n%s\n", rule, rule)
	fmt.Fprintf(w, "\n✅ Total contracts: %d\n", s.Total)

	if len(s.Categories) > 0 {
		fmt.Fprintln(w, "\n📁 Category distribution:")
		for _, r := range s.Distribution() {
			fmt.Fprintf(w, "   %s %s: %d\n", categoryIcon(r.Category), capitalize(r.Category), r.Count)
		}
	}
	if s.HasVerified {
		fmt.Fprintf(w, "\n✓ Verified: %d\n", s.Verified)
		fmt.Fprintf(w, "✗ Unverified: %d\n", s.Unverified)
	}
	fmt.Fprintf(w, "\n📝 With source code: %d\n", s.WithSource)
}

// SummaryReport dataset_report.txt 的内容
func (s Stats) SummaryReport() string {
	rule := strings.Repeat("─", 60)
	var b strings.Builder
	b.WriteString("\n╔══════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║          SMART CONTRACT SECURITY DATASET REPORT              ║\n")
	b.WriteString("╚══════════════════════════════════════════════════════════════╝\n\n")
	b.WriteString("📊 GENERAL STATISTICS\n" + rule + "\n")
	fmt.Fprintf(&b, "Total Contracts: %d\n", s.Total)
	if s.Total == 0 {
		b.WriteString("⚠️  No records processed (input missing or empty)\n")
	}
	b.WriteString("\n📁 CATEGORY DISTRIBUTION\n" + rule + "\n")
	for _, r := range s.Distribution() {
		fmt.Fprintf(&b, "%-15s : %3d (%5.1f%%)\n", strings.ToUpper(r.Category), r.Count, r.Percentage)
	}
	b.WriteString("\n" + rule + "\n")
	return b.String()
}

func categoryIcon(category string) string {
	switch category {
	case internal.CategoryLegit:
		return "🔒"
	case internal.CategoryScam:
		return "🚨"
	default:
		return "⚠️"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
