package internal

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UserAgent 所有外部请求使用的 UA
const UserAgent = "sc-security-research/1.0 (+https://github.com/admi-n/sc-security-research)"

// ProxyManager 代理管理器
type ProxyManager struct {
	proxyURL *url.URL
}

// NewProxyManager 创建代理管理器，proxyURL 为空表示直连
func NewProxyManager(proxyURL string) (*ProxyManager, error) {
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return &ProxyManager{}, nil
	}
	if err := ValidateProxyURL(proxyURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	return &ProxyManager{proxyURL: u}, nil
}

// CreateHTTPClient 创建带代理与统一 UA 的 HTTP 客户端
func (pm *ProxyManager) CreateHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: pm.CreateHTTPTransport()},
	}
}

// CreateHTTPTransport 创建带代理的 HTTP Transport
func (pm *ProxyManager) CreateHTTPTransport() *http.Transport {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     30 * time.Second,
	}
	if pm.proxyURL != nil {
		transport.Proxy = http.ProxyURL(pm.proxyURL)
	}
	return transport
}

// IsEnabled 检查代理是否启用
func (pm *ProxyManager) IsEnabled() bool {
	return pm.proxyURL != nil
}

// GetProxyURL 获取代理URL
func (pm *ProxyManager) GetProxyURL() string {
	if pm.proxyURL != nil {
		return pm.proxyURL.String()
	}
	return ""
}

// ValidateProxyURL 验证代理URL格式，空字符串表示不使用代理
func ValidateProxyURL(proxyURL string) error {
	if strings.TrimSpace(proxyURL) == "" {
		return nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "socks5" {
		return fmt.Errorf("unsupported proxy scheme: %s (supported: http, https, socks5)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("proxy host cannot be empty")
	}
	return nil
}

// CreateProxyHTTPClient 便捷函数：创建带代理的HTTP客户端
func CreateProxyHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	pm, err := NewProxyManager(proxyURL)
	if err != nil {
		return nil, err
	}
	return pm.CreateHTTPClient(timeout), nil
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(req)
}
