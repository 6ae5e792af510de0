package handler

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/analysis"
	"github.com/admi-n/sc-security-research/src/internal/arxiv"
	"github.com/admi-n/sc-security-research/src/internal/dataset"
	"github.com/admi-n/sc-security-research/src/internal/report"
	"github.com/admi-n/sc-security-research/src/strategy/keywords"
)

// ContractSource 合约采集来源，*download.ContractCollector 满足该接口
type ContractSource interface {
	CollectKnown(ctx context.Context) ([]internal.Contract, error)
	CollectVerified(ctx context.Context, n int) ([]internal.Contract, error)
	CollectAddresses(ctx context.Context, addresses []string, category string) ([]internal.Contract, error)
}

// CollectContractsOptions 合约采集参数
type CollectContractsOptions struct {
	Verified  int      // 额外采集最近验证的合约数量，0 表示不采集
	Addresses []string // 非空时只采集这些地址
	Category  string   // Addresses 的类别标签
}

// RunCollectContracts 采集合约并写出 smart_contracts_dataset.json / .csv
func RunCollectContracts(ctx context.Context, env *Env, src ContractSource, opts CollectContractsOptions) ([]internal.Contract, error) {
	fmt.Fprintln(env.out(), "🚀 启动合约采集...")

	var contracts []internal.Contract
	if len(opts.Addresses) > 0 {
		got, err := src.CollectAddresses(ctx, opts.Addresses, opts.Category)
		if err != nil {
			return got, fmt.Errorf("按地址采集失败: %w", err)
		}
		contracts = got
	} else {
		known, err := src.CollectKnown(ctx)
		if err != nil {
			return known, fmt.Errorf("采集已知合约失败: %w", err)
		}
		contracts = known
		if opts.Verified > 0 {
			verified, err := src.CollectVerified(ctx, opts.Verified)
			if err != nil {
				return contracts, err
			}
			contracts = append(contracts, verified...)
		}
	}

	stem := strings.TrimSuffix(dataset.EtherscanFile, filepath.Ext(dataset.EtherscanFile))
	jsonPath, csvPath, err := dataset.WriteDataset(env.RawDir, stem, contracts)
	if err != nil {
		return contracts, err
	}
	fmt.Fprintf(env.out(), "\n💾 Data saved:\n   📄 %s\n   📄 %s\n", jsonPath, csvPath)

	dataset.ComputeStats(contracts).Print(env.out())
	fmt.Fprintln(env.out(), "\n✅ 合约采集完成!")
	return contracts, nil
}

// PaperSearcher 论文检索，*arxiv.Collector 满足该接口
type PaperSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]internal.Paper, error)
}

// CollectPapersOptions 论文采集参数
type CollectPapersOptions struct {
	Query      string
	MaxResults int
	Keywords   string // 自定义 security 词表文件
}

// RunCollectPapers 检索论文、统计安全关键词并写出 academic_papers.json 与采集报告。
// 检索失败只打印 "No papers collected"，不视为错误。
func RunCollectPapers(ctx context.Context, env *Env, searcher PaperSearcher, opts CollectPapersOptions) ([]internal.Paper, error) {
	out := env.out()
	fmt.Fprintln(out, "🚀 Starting Academic Paper Collection")

	papers, err := searcher.Search(ctx, opts.Query, opts.MaxResults)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("❌ arXiv 检索失败: %v\n", err)
	}
	if len(papers) == 0 {
		fmt.Fprintln(out, "❌ No papers collected")
		return []internal.Paper{}, nil
	}
	env.Metrics.Collected("arxiv", len(papers))

	table, err := loadTable(keywords.Security, opts.Keywords)
	if err != nil {
		return papers, err
	}
	rows := arxiv.ExtractKeywords(papers, table.CategoryTable())
	env.console().List(out, "🔍 KEYWORD ANALYSIS", "papers", 20, analysis.NonZero(rows))
	env.Metrics.Categorized(table.Name, len(papers))

	path, err := arxiv.SavePapers(env.RawDir, papers)
	if err != nil {
		return papers, err
	}
	reportPath, err := report.NewFileStorage(env.ReportsDir).Save("academic_papers_report.txt", arxiv.CollectionReport(papers))
	if err != nil {
		return papers, err
	}

	fmt.Fprintf(out, "\n💾 Saved:\n   📄 %s\n   📄 %s\n", path, reportPath)
	fmt.Fprintf(out, "\n✅ Collection completed successfully!\n📦 Collected %d papers\n", len(papers))
	return papers, nil
}

// RunManualData 写出手工整理的 scam / vulnerable 数据与模式表
func RunManualData(env *Env) (*dataset.ManualSummary, error) {
	out := env.out()
	summary, err := dataset.SaveManual(env.RawDir)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "\n📊 MANUAL DATA SUMMARY")
	fmt.Fprintf(out, "   🚨 Scam contracts: %d (≈ $%.2fM loss)\n", summary.Scam, summary.ScamLoss)
	fmt.Fprintf(out, "   ⚠️  Vulnerable contracts: %d (≈ $%.2fM loss)\n", summary.Vulnerable, summary.VulnerableLoss)
	fmt.Fprintf(out, "   🔍 Vulnerability patterns: %d\n", summary.Patterns)
	for _, f := range summary.Files {
		fmt.Fprintf(out, "   📄 %s\n", f)
	}
	return summary, nil
}

// RunMerge 合并各来源为 final_dataset.json / .csv，输出统计与 dataset_report.txt；
// 配置了数据库时同时写入 contracts 表。
func RunMerge(ctx context.Context, env *Env) (dataset.Stats, error) {
	out := env.out()
	fmt.Fprintln(out, "🔄 Merging datasets...")

	contracts, err := dataset.Merge(env.RawDir)
	if err != nil {
		return dataset.Stats{}, err
	}

	stem := strings.TrimSuffix(dataset.FinalFile, filepath.Ext(dataset.FinalFile))
	jsonPath, csvPath, err := dataset.WriteDataset(env.ProcessedDir, stem, contracts)
	if err != nil {
		return dataset.Stats{}, err
	}
	fmt.Fprintf(out, "\n💾 Final dataset:\n   📄 %s\n   📄 %s\n", jsonPath, csvPath)

	stats := dataset.ComputeStats(contracts)
	stats.Print(out)

	reportPath, err := report.NewFileStorage(env.ReportsDir).Save("dataset_report.txt", stats.SummaryReport())
	if err != nil {
		return stats, err
	}
	fmt.Fprintf(out, "\n📄 Report: %s\n", reportPath)

	if env.Store != nil && len(contracts) > 0 {
		if err := env.Store.SaveContracts(ctx, contracts); err != nil {
			return stats, fmt.Errorf("写入数据库失败: %w", err)
		}
		log.Printf("💾 %d 个合约已写入数据库\n", len(contracts))
	}

	env.Metrics.Collected("merge", len(contracts))
	fmt.Fprintln(out, "\n✅ 数据合并完成!")
	return stats, nil
}
