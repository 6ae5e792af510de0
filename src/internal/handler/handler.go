// Package handler 串联采集、合并、分析与报告输出的各个工作流。
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/analysis"
	"github.com/admi-n/sc-security-research/src/internal/arxiv"
	"github.com/admi-n/sc-security-research/src/internal/dataset"
	"github.com/admi-n/sc-security-research/src/internal/metrics"
	"github.com/admi-n/sc-security-research/src/internal/report/renderers"
	"github.com/admi-n/sc-security-research/src/internal/store"
	"github.com/admi-n/sc-security-research/src/strategy/keywords"
)

// ErrNoInput 输入文件缺失或无法解析
var ErrNoInput = errors.New("no input records")

// Store 工作流用到的持久化操作，*store.Store 满足该接口
type Store interface {
	SaveContracts(ctx context.Context, contracts []internal.Contract) error
	SaveRun(ctx context.Context, run *store.AnalysisRun) error
}

// Env 工作流的共享依赖
type Env struct {
	Out          io.Writer
	Console      *renderers.Console
	RawDir       string // 2_raw_data
	ProcessedDir string // 3_processed_data
	ReportsDir   string // 4_reports
	Store        Store  // 可选
	Metrics      *metrics.Registry
	Formats      []string // text 之外额外输出的报告格式，例如 markdown
}

// out 未设置输出时丢弃
func (e *Env) out() io.Writer {
	if e.Out == nil {
		return io.Discard
	}
	return e.Out
}

func (e *Env) console() *renderers.Console {
	if e.Console == nil {
		return renderers.NewConsole(true)
	}
	return e.Console
}

// loadPapers 读取论文；文件缺失或损坏时打印警告并返回空集
func loadPapers(path string) ([]internal.Paper, error) {
	papers, err := arxiv.LoadPapers(path)
	if err != nil {
		log.Printf("⚠️  %v，按 0 条记录处理\n", err)
		return []internal.Paper{}, fmt.Errorf("%s: %w", path, ErrNoInput)
	}
	log.Printf("📚 Loaded %d papers\n", len(papers))
	return papers, nil
}

// loadContracts 读取合约数据集；文件缺失或损坏时打印警告并返回空集
func loadContracts(path string) ([]internal.Contract, error) {
	contracts, err := dataset.LoadContracts(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("⚠️  %s not found，按 0 条记录处理\n", filepath.Base(path))
		} else {
			log.Printf("⚠️  %v，按 0 条记录处理\n", err)
		}
		return []internal.Contract{}, fmt.Errorf("%s: %w", path, ErrNoInput)
	}
	log.Printf("📦 Loaded %d contracts\n", len(contracts))
	return contracts, nil
}

// loadTable 优先使用自定义词表文件
func loadTable(name, override string) (*keywords.Table, error) {
	if strings.TrimSpace(override) != "" {
		return keywords.LoadFile(override)
	}
	return keywords.Load(name)
}

// rank 对记录运行分类并排序
func rank(records []analysis.Record, table *keywords.Table) []analysis.Row {
	return analysis.Rank(analysis.Categorize(records, table.CategoryTable()), len(records))
}

// saveRun 持久化一次分类运行，失败只记录警告
func (e *Env) saveRun(ctx context.Context, table, source string, total int, rows []analysis.Row) {
	e.Metrics.Categorized(table, total)
	if e.Store == nil {
		return
	}
	run := &store.AnalysisRun{
		Table:        table,
		Source:       filepath.Base(source),
		TotalRecords: total,
		Rows:         rows,
	}
	if err := e.Store.SaveRun(ctx, run); err != nil {
		log.Printf("⚠️  保存分析记录失败 (%s): %v\n", table, err)
		return
	}
	log.Printf("💾 分析记录已保存: %s (%s)\n", run.ID, table)
}

// writeFile 写入文件并创建所在目录
func writeFile(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 %s 失败: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return f.Close()
}

// practiceFindings 根据真实合约中的模式计数给出结论
func practiceFindings(practice []analysis.Row) []string {
	var out []string
	if n := analysis.CountOf(practice, "overflow"); n > 0 {
		out = append(out, fmt.Sprintf("Overflow: %d contracts still vulnerable → use SafeMath or Solidity 0.8+", n))
	}
	if n := analysis.CountOf(practice, "reentrancy"); n > 0 {
		out = append(out, fmt.Sprintf("Reentrancy: %d contracts at risk → use reentrancy guards", n))
	}
	if n := analysis.CountOf(practice, "delegatecall"); n > 0 {
		out = append(out, fmt.Sprintf("Delegatecall: %d contracts detected → often used in proxy patterns, context matters", n))
	}
	return out
}
