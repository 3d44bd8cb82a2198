package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PrometheusRecorder struct {
	reg             *prom.Registry
	cacheResults    *prom.CounterVec
	compileDuration prom.Histogram
	pageOutcomes    *prom.CounterVec
	indexedRoutes   prom.Gauge
	buildDuration   prom.Histogram
}

// NewPrometheusRecorder registers the pipeline metrics on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		cacheResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagerouter",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result",
		}, []string{"cache", "result"}),
		compileDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pagerouter",
			Name:      "compile_duration_seconds",
			Help:      "Duration of Markdown/MDX compilation",
			Buckets:   prom.DefBuckets,
		}),
		pageOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagerouter",
			Name:      "page_outcomes_total",
			Help:      "Page resolutions by outcome",
		}, []string{"outcome"}),
		indexedRoutes: prom.NewGauge(prom.GaugeOpts{
			Namespace: "pagerouter",
			Name:      "indexed_routes",
			Help:      "Number of listed routes in the current site",
		}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pagerouter",
			Name:      "build_duration_seconds",
			Help:      "Total static export duration",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.cacheResults, pr.compileDuration, pr.pageOutcomes, pr.indexedRoutes, pr.buildDuration)
	return pr
}

func (p *PrometheusRecorder) IncCacheResult(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheResults.WithLabelValues(cache, result).Inc()
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageOutcome(outcome Outcome) {
	p.pageOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetIndexedRoutes(n int) {
	p.indexedRoutes.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
