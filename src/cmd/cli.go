package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/report"
)

// CLIConfig 保存解析好的全局 CLI 选项
type CLIConfig struct {
	ConfigPath  string   // --config，配置文件路径
	DataDir     string   // --data-dir，数据目录根（2_raw_data 等相对于它）
	Proxy       string   // --proxy，HTTP 代理 (例如 http://127.0.0.1:7897)
	Verbose     bool     // --verbose
	Plain       bool     // --plain，关闭终端样式
	MetricsFile string   // --metrics-file，运行结束后写出 Prometheus 文本格式指标
	Formats     []string // --format，text 之外额外输出的报告格式
	UseDB       bool     // --db，结果同时写入配置的数据库
}

// Validate 检查 CLIConfig 的一致性并补全默认值
func (c *CLIConfig) Validate() error {
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "."
	}
	c.Proxy = strings.TrimSpace(c.Proxy)
	if err := internal.ValidateProxyURL(c.Proxy); err != nil {
		return fmt.Errorf("--proxy: %w", err)
	}

	formats := c.Formats[:0]
	for _, f := range c.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || f == report.FormatText || f == "txt" {
			continue
		}
		if _, err := report.NewGenerator(f); err != nil {
			return fmt.Errorf("--format: %w", err)
		}
		formats = append(formats, f)
	}
	c.Formats = formats

	if c.MetricsFile != "" && filepath.Ext(c.MetricsFile) == "" {
		return errors.New("--metrics-file should name a file, e.g. metrics.prom")
	}
	return nil
}

// resolve 将相对路径放到数据目录下
func (c *CLIConfig) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Run 解析命令行并执行，Ctrl-C 取消正在进行的请求
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// PrintFatal 将错误打印到 stderr 并以非零代码退出。
func PrintFatal(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "错误:", err)
	os.Exit(1)
}
