// Package metrics 提供 Prometheus helper，包含 HTTP 与定价业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/energypricing/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 数据库查询计数
	DBQueriesTotal prometheus.Counter
	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram

	// 定价请求计数（按模型）
	PricingsTotal *prometheus.CounterVec
	// 单次定价耗时
	PricingDuration prometheus.Histogram
	// 定价失败计数
	PricingErrorsTotal prometheus.Counter
	// Monte Carlo 累计模拟路径数
	MonteCarloPathsTotal prometheus.Counter
	// Greeks 计算计数
	GreeksTotal prometheus.Counter
	// 事件转发计数（outbox -> kafka）
	OutboxRelayedTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PricingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "pricings_total",
			Help:      "Total pricing requests by model",
		}, []string{"model"}),
		PricingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "pricing_duration_seconds",
			Help:      "Pricing computation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		PricingErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "pricing_errors_total",
			Help:      "Total failed pricing requests",
		}),
		MonteCarloPathsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "monte_carlo_paths_total",
			Help:      "Total Monte Carlo paths simulated",
		}),
		GreeksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "greeks_total",
			Help:      "Total Greeks computations",
		}),
		OutboxRelayedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energypricing",
			Subsystem: serviceName,
			Name:      "outbox_relayed_total",
			Help:      "Total outbox messages relayed to Kafka",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	metrics := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.PricingsTotal,
		m.PricingDuration,
		m.PricingErrorsTotal,
		m.MonteCarloPathsTotal,
		m.GreeksTotal,
		m.OutboxRelayedTotal,
	}

	for _, metric := range metrics {
		if err := prometheus.DefaultRegisterer.Register(metric); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)
	return http.ListenAndServe(addr, nil)
}
