// Package arxiv 通过 arXiv export API 检索论文并转换为数据集记录。
package arxiv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/cache"
	"github.com/admi-n/sc-security-research/src/internal/metrics"
)

const metricsTarget = "arxiv"

// Config 采集器配置
type Config struct {
	BaseURL  string
	Proxy    string
	Timeout  time.Duration
	Delay    time.Duration // 逐条处理论文之间的间隔
	Cache    cache.Cache
	CacheTTL time.Duration
	Metrics  *metrics.Registry
}

// Collector arXiv 论文采集器
type Collector struct {
	baseURL  string
	http     *http.Client
	parser   *gofeed.Parser
	pace     *rate.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Registry
}

// NewCollector 创建采集器
func NewCollector(cfg Config) (*Collector, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("arxiv base url is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client, err := internal.CreateProxyHTTPClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	pace := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		pace = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	return &Collector{
		baseURL:  strings.TrimSpace(cfg.BaseURL),
		http:     client,
		parser:   gofeed.NewParser(),
		pace:     pace,
		cache:    cache.OrNoop(cfg.Cache),
		cacheTTL: cfg.CacheTTL,
		metrics:  cfg.Metrics,
	}, nil
}

// SearchURL 构造检索 URL
func (c *Collector) SearchURL(query string, maxResults int) string {
	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("sortBy", "relevance")
	q.Set("sortOrder", "descending")
	return c.baseURL + "?" + q.Encode()
}

// Search 检索论文，id 从 1 开始按返回顺序编号。
// 出错时返回空切片与错误，调用方可打印后按 "没有论文" 处理。
func (c *Collector) Search(ctx context.Context, query string, maxResults int) ([]internal.Paper, error) {
	log.Printf("🔍 Searching arXiv for: '%s'\n", query)
	log.Printf("📊 Max results: %d\n", maxResults)

	body, err := c.fetch(ctx, c.SearchURL(query, maxResults))
	if err != nil {
		return []internal.Paper{}, err
	}

	feed, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		c.metrics.Request(metricsTarget, metrics.OutcomeError)
		return []internal.Paper{}, fmt.Errorf("解析 arXiv Atom 响应失败: %w", err)
	}
	log.Printf("✅ Found %d papers\n", len(feed.Items))

	papers := make([]internal.Paper, 0, len(feed.Items))
	for i, item := range feed.Items {
		if err := c.pace.Wait(ctx); err != nil {
			return papers, err
		}
		p := paperFromItem(i+1, item)
		papers = append(papers, p)
		log.Printf("📄 Paper %d/%d: %s (%s)\n", p.ID, len(feed.Items), truncate(p.Title, 80), p.PublishedDate)
	}

	c.metrics.Collected(metricsTarget, len(papers))
	return papers, nil
}

func (c *Collector) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key := cache.Key("arxiv", rawURL)
	if body, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Printf("⚠️  读取缓存失败: %v\n", err)
	} else if ok {
		c.metrics.Request(metricsTarget, metrics.OutcomeCached)
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 arXiv 请求失败: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Request(metricsTarget, metrics.OutcomeError)
		return nil, fmt.Errorf("请求 arXiv API 失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.Request(metricsTarget, metrics.OutcomeError)
		return nil, fmt.Errorf("读取 arXiv 响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.Request(metricsTarget, metrics.OutcomeError)
		return nil, fmt.Errorf("arXiv 返回非 200 状态: %d", resp.StatusCode)
	}

	c.metrics.Request(metricsTarget, metrics.OutcomeOK)
	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		log.Printf("⚠️  写入缓存失败: %v\n", err)
	}
	return body, nil
}

func paperFromItem(id int, item *gofeed.Item) internal.Paper {
	authors := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	published := item.Published
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC().Format("2006-01-02")
	} else if len(published) > 10 {
		published = published[:10]
	}

	link := item.GUID
	if link == "" {
		link = item.Link
	}

	categories := item.Categories
	if categories == nil {
		categories = []string{}
	}

	return internal.Paper{
		ID:            id,
		Title:         flatten(item.Title),
		Authors:       authors,
		Abstract:      flatten(item.Description),
		PublishedDate: published,
		ArxivURL:      link,
		Categories:    categories,
	}
}

// flatten 去除首尾空白并把换行替换为空格
func flatten(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
