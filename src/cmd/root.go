package cmd

import (
	"github.com/spf13/cobra"

	"github.com/admi-n/sc-security-research/src/config"
)

// NewRootCommand 构建 scresearch 命令树
func NewRootCommand() *cobra.Command {
	a := &app{cfg: &CLIConfig{}}

	root := &cobra.Command{
		Use:   "scresearch",
		Short: "智能合约安全研究数据采集与关键词分析工具",
		Long: `scresearch 采集 Etherscan 合约与 arXiv 论文，整理手工 scam / vulnerable 数据，
合并为最终数据集，并按关键词词表统计各类别的出现频率。

典型流程:
  scresearch collect contracts
  scresearch collect papers
  scresearch manual
  scresearch merge
  scresearch analyze contracts
  scresearch analyze papers --compare`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfg.ConfigPath, "config", config.DefaultSettingsPath, "配置文件路径")
	f.StringVar(&a.cfg.DataDir, "data-dir", ".", "数据目录根（2_raw_data / 3_processed_data / 4_reports 所在目录）")
	f.StringVar(&a.cfg.Proxy, "proxy", "", "可选 HTTP 代理，例如 http://127.0.0.1:7897（覆盖配置文件）")
	f.BoolVarP(&a.cfg.Verbose, "verbose", "v", false, "输出详细信息")
	f.BoolVar(&a.cfg.Plain, "plain", false, "关闭终端颜色样式")
	f.StringVar(&a.cfg.MetricsFile, "metrics-file", "", "运行结束后写出 Prometheus 文本格式指标")
	f.StringSliceVar(&a.cfg.Formats, "format", nil, "额外的报告格式: markdown, json")
	f.BoolVar(&a.cfg.UseDB, "db", false, "同时写入配置的数据库 (mysql / postgres / sqlite)")

	root.AddCommand(
		newCollectCommand(a),
		newManualCommand(a),
		newMergeCommand(a),
		newAnalyzeCommand(a),
		newPublishCommand(a),
		newKeywordsCommand(),
		newRunsCommand(a),
	)
	return root
}
