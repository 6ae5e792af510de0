// Package metrics 记录一次批处理运行中的请求与记录数，运行结束后写成
// node_exporter textfile 格式，方便定时任务接入 Prometheus。
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// 请求结果标签
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeNotFound = "not_verified"
	OutcomeError    = "error"
)

// Registry 持有本次运行的全部计数器
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	RecordsCollected   *prometheus.CounterVec
	RecordsCategorized *prometheus.CounterVec
}

// New 创建独立的注册表，不污染全局 DefaultRegisterer
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scresearch_http_requests_total",
			Help: "External API requests by target and outcome",
		}, []string{"target", "outcome"}),
		RecordsCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scresearch_records_collected_total",
			Help: "Records written by collectors, by source",
		}, []string{"source"}),
		RecordsCategorized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scresearch_records_categorized_total",
			Help: "Records passed through the keyword categorizer, by table",
		}, []string{"table"}),
	}
	r.reg.MustRegister(r.HTTPRequests, r.RecordsCollected, r.RecordsCategorized)
	return r
}

// Request 记录一次外部请求；nil Registry 安全
func (r *Registry) Request(target, outcome string) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(target, outcome).Inc()
}

// Collected 记录采集到的记录数
func (r *Registry) Collected(source string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RecordsCollected.WithLabelValues(source).Add(float64(n))
}

// Categorized 记录参与分类的记录数
func (r *Registry) Categorized(table string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RecordsCategorized.WithLabelValues(table).Add(float64(n))
}

// Gatherer 暴露底层注册表
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteFile 以 textfile 格式写出全部指标
func (r *Registry) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
