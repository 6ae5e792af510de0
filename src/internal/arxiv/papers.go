package arxiv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

// PapersFile 论文数据文件名
const PapersFile = "academic_papers.json"

// ExtractKeywords 统计安全关键词在论文标题+摘要中的出现次数（每篇每类最多一次）
func ExtractKeywords(papers []internal.Paper, table analysis.CategoryTable) []analysis.Row {
	result := analysis.Categorize(internal.PaperRecords(papers), table)
	return analysis.Rank(result, len(papers))
}

// DateRange 返回最早与最晚发布日期，无论文时返回空串
func DateRange(papers []internal.Paper) (from, to string) {
	for _, p := range papers {
		if p.PublishedDate == "" {
			continue
		}
		if from == "" || p.PublishedDate < from {
			from = p.PublishedDate
		}
		if to == "" || p.PublishedDate > to {
			to = p.PublishedDate
		}
	}
	return from, to
}

// SavePapers 写入 academic_papers.json
func SavePapers(dir string, papers []internal.Paper) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if papers == nil {
		papers = []internal.Paper{}
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化论文失败: %w", err)
	}
	path := filepath.Join(dir, PapersFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return path, nil
}

// LoadPapers 读取论文数据；文件不存在时返回 os.ErrNotExist 包装的错误
func LoadPapers(path string) ([]internal.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取论文文件失败: %w", err)
	}
	var papers []internal.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("解析论文文件 %s 失败: %w", path, err)
	}
	return papers, nil
}

// CollectionReport 生成论文采集报告（academic_papers_report.txt）
func CollectionReport(papers []internal.Paper) string {
	rule := strings.Repeat("─", 60)
	var b strings.Builder

	b.WriteString("\n╔══════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║          ACADEMIC PAPERS COLLECTION REPORT                   ║\n")
	b.WriteString("╚══════════════════════════════════════════════════════════════╝\n\n")
	b.WriteString("📊 COLLECTION STATISTICS\n" + rule + "\n")
	fmt.Fprintf(&b, "Total Papers Collected: %d\n", len(papers))
	if from, to := DateRange(papers); from != "" {
		fmt.Fprintf(&b, "Date Range: %s to %s\n", from, to)
	}

	b.WriteString("\n📚 PAPERS LIST\n" + rule + "\n")
	for _, p := range papers {
		fmt.Fprintf(&b, "\n%d. %s\n", p.ID, p.Title)
		fmt.Fprintf(&b, "   Authors: %s\n", shortAuthors(p.Authors))
		fmt.Fprintf(&b, "   Date: %s\n", p.PublishedDate)
		fmt.Fprintf(&b, "   URL: %s\n", p.ArxivURL)
	}
	b.WriteString("\n" + rule + "\n")
	return b.String()
}

// shortAuthors 前两位作者，多于两位时追加 "..."
func shortAuthors(authors []string) string {
	if len(authors) <= 2 {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:2], ", ") + "..."
}
