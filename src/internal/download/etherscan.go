package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/cache"
	"github.com/admi-n/sc-security-research/src/internal/metrics"
)

// ErrNotVerified 合约未在 Etherscan 验证（或 API 未返回源码）
var ErrNotVerified = errors.New("contract source not verified")

const (
	maxAttempts    = 3
	defaultBackoff = 500 * time.Millisecond
	metricsTarget  = "etherscan"
)

// EtherscanConfig Etherscan API 配置
type EtherscanConfig struct {
	APIKey            string
	BaseURL           string // 完整端点，例如 https://api.etherscan.io/v2/api
	ChainID           string
	Proxy             string // 可选的 HTTP 代理 URL（例如 http://127.0.0.1:7897）
	Timeout           time.Duration
	RequestsPerSecond float64
	RetryBackoff      time.Duration

	Cache    cache.Cache
	CacheTTL time.Duration
	Metrics  *metrics.Registry
}

// ContractSource getsourcecode 返回的已验证合约信息
type ContractSource struct {
	Address         string
	Name            string
	SourceCode      string
	ABI             string
	CompilerVersion string
	Optimization    string
	License         string
	Proxy           string
	Implementation  string
}

// Contract 转为数据集记录
func (s ContractSource) Contract(category string, collectedAt time.Time) internal.Contract {
	return internal.Contract{
		Address:         s.Address,
		Name:            s.Name,
		Category:        category,
		SourceCode:      s.SourceCode,
		CompilerVersion: s.CompilerVersion,
		Optimization:    s.Optimization,
		License:         s.License,
		CollectionDate:  collectedAt.Format(time.RFC3339),
	}
}

// sourceCodeResult getsourcecode 的 result 元素
type sourceCodeResult struct {
	SourceCode       string `json:"SourceCode"`
	ABI              string `json:"ABI"`
	ContractName     string `json:"ContractName"`
	CompilerVersion  string `json:"CompilerVersion"`
	OptimizationUsed string `json:"OptimizationUsed"`
	LicenseType      string `json:"LicenseType"`
	Proxy            string `json:"Proxy"`
	Implementation   string `json:"Implementation"`
}

// envelope Etherscan 统一响应结构；出错时 result 是字符串
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client Etherscan API 客户端
type Client struct {
	apiKey   string
	baseURL  string
	chainID  string
	http     *http.Client
	limiter  *RateLimiter
	backoff  time.Duration
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Registry
}

// NewClient 创建 Etherscan 客户端
func NewClient(cfg EtherscanConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("etherscan base url is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("解析 Etherscan BaseURL 失败: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.ChainID == "" {
		cfg.ChainID = "1"
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultBackoff
	}

	httpClient, err := internal.CreateProxyHTTPClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("解析 Etherscan proxy 失败: %w", err)
	}

	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimSpace(cfg.BaseURL),
		chainID:  cfg.ChainID,
		http:     httpClient,
		limiter:  NewRateLimiter(cfg.RequestsPerSecond),
		backoff:  cfg.RetryBackoff,
		cache:    cache.OrNoop(cfg.Cache),
		cacheTTL: cfg.CacheTTL,
		metrics:  cfg.Metrics,
	}, nil
}

// FetchContractSource 获取合约源代码。
// status != "1"、result 为空或 SourceCode 为空均返回 ErrNotVerified。
func (c *Client) FetchContractSource(ctx context.Context, address string) (*ContractSource, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("空的地址传入 FetchContractSource")
	}

	q := url.Values{}
	q.Set("address", address)
	env, err := c.call(ctx, "getsourcecode", q)
	if err != nil {
		return nil, err
	}
	if env.Status != "1" {
		c.metrics.Request(metricsTarget, metrics.OutcomeNotFound)
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotVerified, address, env.Message)
	}

	var results []sourceCodeResult
	if err := json.Unmarshal(env.Result, &results); err != nil {
		return nil, fmt.Errorf("解析 getsourcecode result 失败: %w", err)
	}
	if len(results) == 0 || strings.TrimSpace(results[0].SourceCode) == "" {
		c.metrics.Request(metricsTarget, metrics.OutcomeNotFound)
		return nil, fmt.Errorf("%w: %s", ErrNotVerified, address)
	}

	res := results[0]
	license := res.LicenseType
	if license == "" {
		license = "Unknown"
	}
	return &ContractSource{
		Address:         address,
		Name:            res.ContractName,
		SourceCode:      res.SourceCode,
		ABI:             res.ABI,
		CompilerVersion: res.CompilerVersion,
		Optimization:    res.OptimizationUsed,
		License:         license,
		Proxy:           res.Proxy,
		Implementation:  res.Implementation,
	}, nil
}

// ListVerifiedContracts 列出最近验证的合约地址（action=listcontracts, page=1, offset=n）
func (c *Client) ListVerifiedContracts(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("page", "1")
	q.Set("offset", fmt.Sprint(n))
	env, err := c.call(ctx, "listcontracts", q)
	if err != nil {
		return nil, err
	}
	if env.Status != "1" {
		return nil, fmt.Errorf("etherscan listcontracts: %s", env.Message)
	}

	var items []struct {
		ContractAddress string `json:"ContractAddress"`
	}
	if err := json.Unmarshal(env.Result, &items); err != nil {
		return nil, fmt.Errorf("解析 listcontracts result 失败: %w", err)
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if addr := strings.TrimSpace(it.ContractAddress); addr != "" {
			out = append(out, addr)
		}
	}
	return out, nil
}

// call 发送一次 module=contract 请求。
// 短暂网络错误 / EOF / 超时 / 5xx 最多重试 maxAttempts 次，线性退避。
// 仅缓存 status == "1" 的响应，避免把限流错误写进缓存。
func (c *Client) call(ctx context.Context, action string, params url.Values) (*envelope, error) {
	params.Set("chainid", c.chainID)
	params.Set("module", "contract")
	params.Set("action", action)
	params.Set("apikey", c.apiKey)
	finalURL := c.baseURL + "?" + params.Encode()
	// 错误信息里不带 apikey
	label := fmt.Sprintf("action=%s address=%s", action, params.Get("address"))

	key := cache.Key("etherscan", finalURL)
	if body, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Printf("⚠️  读取缓存失败: %v\n", err)
	} else if ok {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil {
			c.metrics.Request(metricsTarget, metrics.OutcomeCached)
			return &env, nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
		if err != nil {
			return nil, fmt.Errorf("创建 Etherscan 请求失败: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			err = redactURLError(err)
			lastErr = err
			if ctx.Err() == nil && isTemporaryNetErr(err) && attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*c.backoff); err != nil {
					return nil, err
				}
				continue
			}
			c.metrics.Request(metricsTarget, metrics.OutcomeError)
			return nil, fmt.Errorf("请求 Etherscan API 失败: %w (%s)", err, label)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			readErr = redactURLError(readErr)
			lastErr = readErr
			if isTemporaryNetErr(readErr) && attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*c.backoff); err != nil {
					return nil, err
				}
				continue
			}
			c.metrics.Request(metricsTarget, metrics.OutcomeError)
			return nil, fmt.Errorf("读取 Etherscan 响应失败: %w (%s)", readErr, label)
		}

		if resp.StatusCode != http.StatusOK {
			snippet := string(body)
			if len(snippet) > 1024 {
				snippet = snippet[:1024]
			}
			lastErr = fmt.Errorf("Etherscan 返回非 200 状态: %d, body: %s", resp.StatusCode, snippet)
			if (resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests) && attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*c.backoff); err != nil {
					return nil, err
				}
				continue
			}
			c.metrics.Request(metricsTarget, metrics.OutcomeError)
			return nil, lastErr
		}

		var env envelope
		if jerr := json.Unmarshal(body, &env); jerr != nil {
			lastErr = jerr
			// JSON 解析错误通常不可恢复，但做少量重试以应对偶发损坏
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*c.backoff*3/5); err != nil {
					return nil, err
				}
				continue
			}
			c.metrics.Request(metricsTarget, metrics.OutcomeError)
			return nil, fmt.Errorf("解析 Etherscan JSON 失败: %w (%s)", jerr, label)
		}

		if env.Status == "1" {
			c.metrics.Request(metricsTarget, metrics.OutcomeOK)
			if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
				log.Printf("⚠️  写入缓存失败: %v\n", err)
			}
		}
		return &env, nil
	}

	c.metrics.Request(metricsTarget, metrics.OutcomeError)
	return nil, fmt.Errorf("请求 Etherscan 多次失败: %w (%s)", lastErr, label)
}

// redactURLError 去掉 *url.Error 中 URL 携带的 apikey
func redactURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: redactAPIKey(ue.URL), Err: ue.Err}
}

// redactAPIKey 把查询参数中的 apikey 替换为占位符
func redactAPIKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	q := u.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// isTemporaryNetErr 判断是否为可重试的网络错误
func isTemporaryNetErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
