package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/admi-n/sc-security-research/src/config"
	"github.com/admi-n/sc-security-research/src/internal/arxiv"
	"github.com/admi-n/sc-security-research/src/internal/cache"
	"github.com/admi-n/sc-security-research/src/internal/download"
	"github.com/admi-n/sc-security-research/src/internal/handler"
	"github.com/admi-n/sc-security-research/src/internal/metrics"
	"github.com/admi-n/sc-security-research/src/internal/report/renderers"
	"github.com/admi-n/sc-security-research/src/internal/store"
)

// app 一次命令执行的共享状态
type app struct {
	cfg      *CLIConfig
	settings *config.Settings
	metrics  *metrics.Registry
	store    *store.Store
	cache    cache.Cache
	closers  []func() error
}

// setup 校验参数、加载配置
func (a *app) setup(cmd *cobra.Command) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	settings, err := config.LoadSettings(a.cfg.ConfigPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || settings == nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		log.Printf("⚠️  警告: 无法加载配置文件: %v，将使用默认值与环境变量\n", err)
	}
	if a.cfg.Proxy != "" {
		settings.Proxy = a.cfg.Proxy
	}
	a.settings = settings
	a.metrics = metrics.New()

	if a.cfg.Verbose {
		cmd.Printf("使用配置: data-dir=%s db=%s(%v) proxy=%q redis=%v formats=%v\n",
			a.cfg.DataDir, settings.Database.Driver, a.cfg.UseDB, settings.Proxy,
			settings.Redis.URL != "", a.cfg.Formats)
	}
	return nil
}

// finish 写出指标并释放资源
func (a *app) finish(cmd *cobra.Command) error {
	defer a.close()
	if a.cfg.MetricsFile == "" || a.metrics == nil {
		return nil
	}
	if err := a.metrics.WriteFile(a.cfg.MetricsFile); err != nil {
		return fmt.Errorf("写出指标失败: %w", err)
	}
	if a.cfg.Verbose {
		cmd.Printf("📈 指标已写入 %s\n", a.cfg.MetricsFile)
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("⚠️  关闭资源失败: %v\n", err)
		}
	}
	a.closers = nil
}

// openStore 按配置打开数据库（仅打开一次）
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	db := a.settings.Database
	driver := db.Driver
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s, err := store.Open(ctx, driver, db.DataSourceName(a.cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	log.Printf("✅ 数据库连接成功 (%s)\n", driver)
	a.store = s
	a.closers = append(a.closers, s.Close)
	return s, nil
}

// responseCache 配置了 Redis 时使用 Redis，否则使用进程内缓存
func (a *app) responseCache(ctx context.Context) cache.Cache {
	if a.cache != nil {
		return a.cache
	}
	a.cache = cache.NewMemory()
	if url := a.settings.Redis.URL; url != "" {
		r, err := cache.NewRedis(ctx, url)
		if err != nil {
			log.Printf("⚠️  Redis 不可用，改用内存缓存: %v\n", err)
		} else {
			a.cache = r
			a.closers = append(a.closers, r.Close)
		}
	}
	return a.cache
}

// env 构造工作流依赖
func (a *app) env(cmd *cobra.Command) (*handler.Env, error) {
	paths := a.settings.Paths
	env := &handler.Env{
		Out:          cmd.OutOrStdout(),
		Console:      renderers.NewConsole(a.cfg.Plain),
		RawDir:       a.cfg.resolve(paths.RawData),
		ProcessedDir: a.cfg.resolve(paths.Processed),
		ReportsDir:   a.cfg.resolve(paths.Reports),
		Metrics:      a.metrics,
		Formats:      a.cfg.Formats,
	}
	if a.cfg.UseDB {
		s, err := a.openStore(cmd.Context())
		if err != nil {
			return nil, err
		}
		env.Store = s
	}
	return env, nil
}

// etherscanClient 按配置创建 Etherscan 客户端
func (a *app) etherscanClient(ctx context.Context) (*download.Client, error) {
	key, err := a.settings.EtherscanKey()
	if err != nil {
		return nil, err
	}
	es := a.settings.Etherscan
	return download.NewClient(download.EtherscanConfig{
		APIKey:            key,
		BaseURL:           es.BaseURL,
		ChainID:           es.ChainID,
		Proxy:             a.settings.Proxy,
		Timeout:           a.settings.HTTPTimeout,
		RequestsPerSecond: es.RequestsPerSecond,
		Cache:             a.responseCache(ctx),
		CacheTTL:          a.settings.Redis.TTL,
		Metrics:           a.metrics,
	})
}

// arxivCollector 按配置创建 arXiv 采集器
func (a *app) arxivCollector(ctx context.Context) (*arxiv.Collector, error) {
	ax := a.settings.Arxiv
	return arxiv.NewCollector(arxiv.Config{
		BaseURL:  ax.BaseURL,
		Proxy:    a.settings.Proxy,
		Timeout:  a.settings.HTTPTimeout,
		Delay:    ax.Delay,
		Cache:    a.responseCache(ctx),
		CacheTTL: a.settings.Redis.TTL,
		Metrics:  a.metrics,
	})
}
