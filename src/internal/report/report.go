package report

import (
	"time"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

// Section 报告中的一个排名表
type Section struct {
	Title string
	Icon  string
	Label string // 表头第一列，例如 "Vulnerability Category"
	Rows  []analysis.Row
	Limit int // 只输出前 Limit 行，0 表示全部
	Width int // 类别名列宽，0 使用默认值
}

// KV 概览中的一行
type KV struct {
	Key   string
	Value string
}

// Report 一次分析 / 采集的完整报告
type Report struct {
	Name         string // 输出文件名（不含扩展名）
	Title        string
	Unit         string // papers / contracts / records
	GeneratedAt  time.Time
	TotalRecords int
	Overview     []KV
	Sections     []Section
	Gap          *analysis.Gap
	Findings     []string
	Data         any // JSON 生成器优先输出该字段
}

// NewReport 创建新的报告实例
func NewReport(name, title, unit string, totalRecords int) *Report {
	if unit == "" {
		unit = "records"
	}
	return &Report{
		Name:         name,
		Title:        title,
		Unit:         unit,
		GeneratedAt:  time.Now(),
		TotalRecords: totalRecords,
	}
}

// AddOverview 添加概览行
func (r *Report) AddOverview(key, value string) {
	r.Overview = append(r.Overview, KV{Key: key, Value: value})
}

// AddSection 添加排名表
func (r *Report) AddSection(s Section) {
	r.Sections = append(r.Sections, s)
}

// AddFinding 添加结论
func (r *Report) AddFinding(finding string) {
	r.Findings = append(r.Findings, finding)
}

// Empty 是否没有处理任何记录
func (r *Report) Empty() bool {
	return r.TotalRecords == 0
}

func (s Section) visibleRows() []analysis.Row {
	return analysis.Top(s.Rows, s.Limit)
}

func (s Section) width() int {
	if s.Width > 0 {
		return s.Width
	}
	return 25
}
