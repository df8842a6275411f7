package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sampsim_samples_total",
		Help: "Total number of completed sample runs",
	}, []string{"type"})
	SampleFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sampsim_sample_failures_total",
		Help: "Total number of failed or incomplete sample runs",
	}, []string{"type", "reason"})
	BuildingsSelectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sampsim_buildings_selected_total",
		Help: "Total number of buildings selected by sampling",
	}, []string{"type"})
	InitialAttempts = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sampsim_initial_attempts",
		Help:    "Attempts needed to find a non-empty initial region",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"type"})
	SampleDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sampsim_sample_duration_ms",
		Help:    "Sample run duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"type"})
	TreeBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sampsim_tree_build_duration_ms",
		Help:    "Building tree construction duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sampsim_cache_hits_total",
		Help: "Total sample result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sampsim_cache_misses_total",
		Help: "Total sample result cache misses",
	})
	RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sampsim_requests_total",
		Help: "Total number of /api/sample requests",
	})
)

func init() {
	prometheus.MustRegister(SamplesTotal)
	prometheus.MustRegister(SampleFailuresTotal)
	prometheus.MustRegister(BuildingsSelectedTotal)
	prometheus.MustRegister(InitialAttempts)
	prometheus.MustRegister(SampleDurationMs)
	prometheus.MustRegister(TreeBuildDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RequestsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
