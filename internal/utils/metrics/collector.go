// internal/utils/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "token_sale"

// Collector держит все метрики сервиса. Регистр передаётся явно, чтобы тесты
// могли использовать собственный prometheus.NewRegistry().
// Все методы безопасны для nil-получателя: компонент без метрик просто их не пишет.
type Collector struct {
	assemblies       *prometheus.CounterVec
	assemblyDuration *prometheus.HistogramVec
	accountCreations prometheus.Counter
	priorityFee      prometheus.Histogram

	rpcCalls   *prometheus.CounterVec
	rpcLatency *prometheus.HistogramVec
	rpcRetries *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector создает коллектор и регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		assemblies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assemblies_total",
				Help:      "Total number of purchase transactions assembled, by outcome",
			},
			[]string{"outcome", "class"},
		),
		assemblyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assembly_duration_seconds",
				Help:      "Time spent assembling and partially signing a transaction",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"outcome"},
		),
		accountCreations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_account_creations_total",
				Help:      "Assembled transactions that include a create-associated-token-account instruction",
			},
		),
		priorityFee: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "priority_fee_micro_lamports",
				Help:      "Compute unit price attached to assembled transactions",
				Buckets:   prometheus.ExponentialBuckets(1_000, 4, 10),
			},
		),
		rpcCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_calls_total",
				Help:      "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method"},
		),
		rpcRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_retries_total",
				Help:      "Total number of Solana RPC retry attempts",
			},
			[]string{"method"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10},
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// RecordAssembly записывает результат одной сборки транзакции.
// outcome: "success" или вид ошибки; class: класс ошибки ("none" при успехе).
func (c *Collector) RecordAssembly(outcome, class string, duration time.Duration) {
	if c == nil {
		return
	}
	c.assemblies.WithLabelValues(outcome, class).Inc()
	c.assemblyDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordAccountCreation отмечает транзакцию с созданием токен-аккаунта покупателя.
func (c *Collector) RecordAccountCreation() {
	if c == nil {
		return
	}
	c.accountCreations.Inc()
}

// RecordPriorityFee записывает приложенную к транзакции цену compute unit.
func (c *Collector) RecordPriorityFee(microLamports uint64) {
	if c == nil {
		return
	}
	c.priorityFee.Observe(float64(microLamports))
}

// RecordRPCCall записывает метрики RPC-запроса
func (c *Collector) RecordRPCCall(method string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.rpcCalls.WithLabelValues(method, status).Inc()
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRPCRetry записывает повторную попытку RPC-запроса
func (c *Collector) RecordRPCRetry(method string) {
	if c == nil {
		return
	}
	c.rpcRetries.WithLabelValues(method).Inc()
}

// RecordHTTPRequest записывает HTTP-запрос
func (c *Collector) RecordHTTPRequest(handler, method string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	status := statusClass(statusCode)
	c.httpRequests.WithLabelValues(handler, method, status).Inc()
	c.httpDuration.WithLabelValues(handler, method, status).Observe(duration.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
