package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/download"
	"github.com/admi-n/sc-security-research/src/internal/handler"
	"github.com/admi-n/sc-security-research/src/internal/publish"
	"github.com/admi-n/sc-security-research/src/strategy/keywords"
)

func newCollectCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "collect",
		Short: "从外部 API 采集数据",
	}
	c.AddCommand(newCollectContractsCommand(a), newCollectPapersCommand(a))
	return c
}

func newCollectContractsCommand(a *app) *cobra.Command {
	var (
		verified int
		file     string
		category string
		failLog  string
	)
	c := &cobra.Command{
		Use:   "contracts",
		Short: "从 Etherscan 采集已知 legit / scam 合约",
		Long: `采集预置的已知安全合约与诈骗合约的源代码，写出 smart_contracts_dataset.json / .csv。
配置了 rpc.ethereum 时同时补充字节码大小与余额。

示例:
  scresearch collect contracts
  scresearch collect contracts --verified 10
  scresearch collect contracts --file failed.txt --proxy http://127.0.0.1:7897`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := a.env(cmd)
			if err != nil {
				return err
			}
			client, err := a.etherscanClient(ctx)
			if err != nil {
				return err
			}

			opts := []download.Option{
				download.WithMetrics(a.metrics),
				download.WithFailLog(a.cfg.resolve(failLog)),
			}
			if env.Store != nil {
				opts = append(opts, download.WithStore(a.store))
			}
			if rpcURL := a.settings.RPC.Ethereum; rpcURL != "" {
				httpClient, err := internal.CreateProxyHTTPClient(a.settings.Proxy, a.settings.HTTPTimeout)
				if err != nil {
					return err
				}
				chain, err := download.DialChain(ctx, rpcURL, httpClient)
				if err != nil {
					return err
				}
				defer chain.Close()
				opts = append(opts, download.WithChain(chain))
			}
			collector := download.NewContractCollector(client, opts...)

			collectOpts := handler.CollectContractsOptions{Verified: verified, Category: category}
			if file != "" {
				addrs, err := download.ReadAddressFile(file)
				if err != nil {
					return err
				}
				if len(addrs) == 0 {
					return fmt.Errorf("地址文件为空: %s", file)
				}
				collectOpts.Addresses = addrs
			}

			_, err = handler.RunCollectContracts(ctx, env, collector, collectOpts)
			return err
		},
	}
	c.Flags().IntVar(&verified, "verified", 0, "额外采集最近验证的合约数量")
	c.Flags().StringVar(&file, "file", "", "从 txt 文件读取地址逐条采集（每行一个地址）")
	c.Flags().StringVar(&category, "category", internal.CategoryUnknown, "--file 中地址的类别标签")
	c.Flags().StringVar(&failLog, "fail-log", "eoferror.txt", "网络失败的地址追加写入该文件")
	return c
}

func newCollectPapersCommand(a *app) *cobra.Command {
	var (
		query        string
		maxResults   int
		keywordsFile string
	)
	c := &cobra.Command{
		Use:   "papers",
		Short: "从 arXiv 检索智能合约安全论文",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := a.env(cmd)
			if err != nil {
				return err
			}
			collector, err := a.arxivCollector(ctx)
			if err != nil {
				return err
			}
			if query == "" {
				query = a.settings.Arxiv.Query
			}
			if maxResults <= 0 {
				maxResults = a.settings.Arxiv.MaxResults
			}
			_, err = handler.RunCollectPapers(ctx, env, collector, handler.CollectPapersOptions{
				Query:      query,
				MaxResults: maxResults,
				Keywords:   keywordsFile,
			})
			return err
		},
	}
	c.Flags().StringVar(&query, "query", "", "检索词（默认取配置 arxiv.query）")
	c.Flags().IntVar(&maxResults, "max", 0, "最多返回的论文数（默认取配置 arxiv.max_results）")
	c.Flags().StringVar(&keywordsFile, "keywords", "", "自定义 security 词表 YAML 文件")
	return c
}

func newManualCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "manual",
		Short: "写出手工整理的 scam / vulnerable 合约与漏洞模式",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.env(cmd)
			if err != nil {
				return err
			}
			_, err = handler.RunManualData(env)
			return err
		},
	}
}

func newMergeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "合并各来源为 final_dataset.json / .csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.env(cmd)
			if err != nil {
				return err
			}
			_, err = handler.RunMerge(cmd.Context(), env)
			return err
		},
	}
}

func newAnalyzeCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "analyze",
		Short: "关键词频率分析",
	}
	c.AddCommand(newAnalyzePapersCommand(a), newAnalyzeContractsCommand(a))
	return c
}

func newAnalyzePapersCommand(a *app) *cobra.Command {
	var opts handler.PaperAnalysisOptions
	c := &cobra.Command{
		Use:   "papers",
		Short: "统计论文中的漏洞、防御与研究主题",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.env(cmd)
			if err != nil {
				return err
			}
			_, err = handler.RunPaperAnalysis(cmd.Context(), env, opts)
			return err
		},
	}
	c.Flags().StringVar(&opts.Input, "input", "", "论文 JSON（默认 <raw>/academic_papers.json）")
	c.Flags().BoolVar(&opts.Compare, "compare", false, "与真实合约的漏洞模式对照")
	c.Flags().StringVar(&opts.ContractsInput, "contracts", "", "对照用的合约数据集（默认 <processed>/final_dataset.json）")
	c.Flags().StringToStringVar(&opts.Keywords, "keywords", nil, "覆盖词表，可重复：vulnerability|defense|themes=<YAML 文件>")
	return c
}

func newAnalyzeContractsCommand(a *app) *cobra.Command {
	var opts handler.ContractAnalysisOptions
	c := &cobra.Command{
		Use:   "contracts",
		Short: "统计合约数据集中的漏洞模式",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.env(cmd)
			if err != nil {
				return err
			}
			_, err = handler.RunContractAnalysis(cmd.Context(), env, opts)
			return err
		},
	}
	c.Flags().StringVar(&opts.Input, "input", "", "合约 JSON（默认 <processed>/final_dataset.json）")
	c.Flags().StringVar(&opts.Keywords, "keywords", "", "自定义 contract_patterns 词表 YAML 文件")
	return c
}

func newPublishCommand(a *app) *cobra.Command {
	var (
		bucket string
		prefix string
	)
	c := &cobra.Command{
		Use:   "publish",
		Short: "上传最终数据集与报告到 S3",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s3cfg := a.settings.S3
			if bucket == "" {
				bucket = s3cfg.Bucket
			}
			if prefix == "" {
				prefix = s3cfg.Prefix + "/" + time.Now().UTC().Format("20060102T150405Z")
			}

			pub, err := publish.NewS3Publisher(ctx, publish.Config{Bucket: bucket, Region: s3cfg.Region})
			if err != nil {
				return err
			}

			paths := a.settings.Paths
			total := 0
			for _, dir := range []string{paths.Processed, paths.Reports} {
				keys, err := pub.UploadDir(ctx, a.cfg.resolve(dir), publish.ObjectKey(prefix, filepath.Base(dir)))
				if err != nil {
					return err
				}
				total += len(keys)
			}
			cmd.Printf("\n🎉 已上传 %d 个文件到 s3://%s/%s\n", total, bucket, prefix)
			return nil
		},
	}
	c.Flags().StringVar(&bucket, "bucket", "", "目标 bucket（默认取配置 s3.bucket / S3_BUCKET）")
	c.Flags().StringVar(&prefix, "prefix", "", "对象键前缀（默认 <s3.prefix>/<UTC 时间戳>）")
	return c
}

func newKeywordsCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "keywords",
		Short: "查看内置关键词词表",
	}
	c.AddCommand(&cobra.Command{
		Use:   "list [table]",
		Short: "列出词表，或列出某个词表的类别与触发词",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				names, err := keywords.List()
				if err != nil {
					return err
				}
				for _, n := range names {
					cmd.Println(n)
				}
				return nil
			}

			table, err := keywords.Load(args[0])
			if err != nil {
				return err
			}
			for _, cat := range table.Categories {
				cmd.Printf("%-25s %s\n", cat.Name, strings.Join(cat.Triggers(), ", "))
			}
			return nil
		},
	})
	return c
}

func newRunsCommand(a *app) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "查看数据库中保存的分析记录",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 1 {
				run, err := s.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d records\n", run.ID, run.Table, run.Source, run.TotalRecords)
				for _, r := range run.Rows {
					fmt.Fprintf(w, "  %s\t%d\t%.1f%%\n", r.Category, r.Count, r.Percentage)
				}
				return nil
			}

			runs, err := s.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			counts, err := s.CountByCategory(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tTABLE\tSOURCE\tRECORDS\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Table, r.Source, r.TotalRecords, r.CreatedAt.Format(time.RFC3339))
			}
			if len(counts) > 0 {
				categories := make([]string, 0, len(counts))
				for c := range counts {
					categories = append(categories, c)
				}
				sort.Strings(categories)
				fmt.Fprintln(w)
				for _, c := range categories {
					fmt.Fprintf(w, "contracts[%s]\t%d\n", c, counts[c])
				}
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "最多显示的记录数")
	return c
}
