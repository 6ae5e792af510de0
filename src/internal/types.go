package internal

import (
	"strconv"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

// 合约分类标签
const (
	CategoryLegit      = "legit"
	CategoryScam       = "scam"
	CategoryVulnerable = "vulnerable"
	CategoryUnknown    = "unknown"
)

// Contract 数据集中的一条合约记录。
// Etherscan 采集、手工整理的 scam / vulnerable 数据共用此结构，缺失字段省略输出。
type Contract struct {
	Address              string   `json:"address"`
	Name                 string   `json:"name"`
	Category             string   `json:"category"`
	SourceCode           string   `json:"source_code,omitempty"`
	CompilerVersion      string   `json:"compiler_version,omitempty"`
	Optimization         string   `json:"optimization,omitempty"`
	License              string   `json:"license,omitempty"`
	CollectionDate       string   `json:"collection_date,omitempty"`
	Balance              string   `json:"balance,omitempty"`
	BytecodeSize         int      `json:"bytecode_size,omitempty"`
	ScamType             string   `json:"scam_type,omitempty"`
	VulnerabilityType    string   `json:"vulnerability_type,omitempty"`
	Description          string   `json:"description,omitempty"`
	KnownVulnerabilities []string `json:"known_vulnerabilities,omitempty"`
	DateIdentified       string   `json:"date_identified,omitempty"`
	EstimatedLoss        string   `json:"estimated_loss,omitempty"`
	Verified             *bool    `json:"verified,omitempty"`
	SourceNotes          string   `json:"source_notes,omitempty"`
	VulnerabilityPattern string   `json:"vulnerability_pattern,omitempty"`
}

// HasSource 是否包含源代码
func (c Contract) HasSource() bool {
	return strings.TrimSpace(c.SourceCode) != ""
}

// Record 转为分类记录：源码、描述、已知漏洞标签与漏洞模式一起参与匹配
func (c Contract) Record() analysis.Record {
	return analysis.NewRecord(c.Address,
		c.Name,
		c.Description,
		strings.Join(c.KnownVulnerabilities, " "),
		c.VulnerabilityPattern,
		c.SourceCode,
	)
}

// Paper arXiv 论文元数据
type Paper struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Abstract      string   `json:"abstract"`
	PublishedDate string   `json:"published_date"`
	ArxivURL      string   `json:"arxiv_url"`
	Categories    []string `json:"categories"`
}

// Record 转为分类记录：标题 + 摘要
func (p Paper) Record() analysis.Record {
	return analysis.NewRecord(strconv.Itoa(p.ID), p.Title, p.Abstract)
}

// PaperRecords 批量转换
func PaperRecords(papers []Paper) []analysis.Record {
	out := make([]analysis.Record, len(papers))
	for i, p := range papers {
		out[i] = p.Record()
	}
	return out
}

// ContractRecords 批量转换
func ContractRecords(contracts []Contract) []analysis.Record {
	out := make([]analysis.Record, len(contracts))
	for i, c := range contracts {
		out[i] = c.Record()
	}
	return out
}

// BoolPtr 便于构造 Verified 字段
func BoolPtr(v bool) *bool {
	return &v
}
