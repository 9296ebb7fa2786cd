// Package metrics 导入与删除流程的 Prometheus 指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace 指标前缀
const Namespace = "hypnotools"

// Metrics 指标集合，使用独立 Registry；nil 接收者上的方法均为空操作
type Metrics struct {
	registry *prometheus.Registry

	recordsTotal     *prometheus.CounterVec
	retriesTotal     prometheus.Counter
	batchDuration    prometheus.Histogram
	importRunsTotal  *prometheus.CounterVec
	deletionRuns     *prometheus.CounterVec
	deletedClients   prometheus.Counter
	requestDuration  *prometheus.HistogramVec
	structureImports *prometheus.CounterVec
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "import",
		Name:      "records_total",
		Help:      "Client records sent to the CRM, by result.",
	}, []string{"result"})

	m.retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "import",
		Name:      "retries_total",
		Help:      "Network retries of manageclients calls.",
	})

	m.batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "import",
		Name:      "batch_duration_seconds",
		Help:      "Time to send one batch, excluding the pause between batches.",
		Buckets:   prometheus.DefBuckets,
	})

	m.importRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Import runs, by final status.",
	}, []string{"status"})

	m.deletionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "deletion",
		Name:      "runs_total",
		Help:      "Bulk deletion runs, by final status.",
	}, []string{"status"})

	m.deletedClients = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "deletion",
		Name:      "clients_deleted_total",
		Help:      "Clients reported as deleted by the backend.",
	})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests served by hypnotools.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	m.structureImports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "erp",
		Name:      "structure_imports_total",
		Help:      "Product structure imports sent to the backend, by result.",
	}, []string{"result"})

	m.registry.MustRegister(
		m.recordsTotal,
		m.retriesTotal,
		m.batchDuration,
		m.importRunsTotal,
		m.deletionRuns,
		m.deletedClients,
		m.requestDuration,
		m.structureImports,
	)
	return m
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSent 记录一条发送结果
func (m *Metrics) RecordSent(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failed"
	}
	m.recordsTotal.WithLabelValues(result).Inc()
}

// RecordRetry 记录一次网络重试
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

// ObserveBatch 记录批次耗时
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

// RecordImportRun 记录一次导入
func (m *Metrics) RecordImportRun(status string) {
	if m == nil {
		return
	}
	m.importRunsTotal.WithLabelValues(status).Inc()
}

// RecordDeletionRun 记录一次删除及删除数量
func (m *Metrics) RecordDeletionRun(status string, deleted int) {
	if m == nil {
		return
	}
	m.deletionRuns.WithLabelValues(status).Inc()
	if deleted > 0 {
		m.deletedClients.Add(float64(deleted))
	}
}

// ObserveRequest 记录 HTTP 请求耗时
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// RecordStructureImport 记录产品结构导入结果
func (m *Metrics) RecordStructureImport(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failed"
	}
	m.structureImports.WithLabelValues(result).Inc()
}
