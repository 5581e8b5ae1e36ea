package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metric names.
const (
	MetricRendersTotal         = "pdfsandbox_renders_total"
	MetricRenderDuration       = "pdfsandbox_render_duration_seconds"
	MetricRendersInFlight      = "pdfsandbox_renders_in_flight"
	MetricPDFBytesTotal        = "pdfsandbox_pdf_bytes_total"
	MetricPoolSize             = "pdfsandbox_pool_size"
	MetricFontCacheEntries     = "pdfsandbox_font_cache_entries"
	MetricFontCacheBytes       = "pdfsandbox_font_cache_bytes"
	MetricFontCacheHitsTotal   = "pdfsandbox_font_cache_hits_total"
	MetricFontCacheMissesTotal = "pdfsandbox_font_cache_misses_total"
)

// Render outcomes.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
	outcomeTimeout  = "timeout"
)

// renderBuckets cover fast fragments through slow CJK documents.
var renderBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the Prometheus collectors for the render routes on a
// private registry.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry
	renders  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	pdfBytes prometheus.Counter
}

// NewMetrics registers the render collectors, the Go runtime and process
// collectors, and pool and font cache gauges when r reports them.
func NewMetrics(r Renderer) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRendersTotal,
			Help: "Renders by route and outcome.",
		}, []string{"route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRenderDuration,
			Help:    "Render latency by route.",
			Buckets: renderBuckets,
		}, []string{"route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricRendersInFlight,
			Help: "Renders currently running.",
		}),
		pdfBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPDFBytesTotal,
			Help: "PDF bytes streamed to clients.",
		}),
	}

	m.registry.MustRegister(
		m.renders,
		m.duration,
		m.inFlight,
		m.pdfBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if sr, ok := r.(statsRenderer); ok {
		m.registerRendererStats(sr)
	}
	return m
}

func (m *Metrics) registerRendererStats(sr statsRenderer) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: MetricPoolSize,
		Help: "Maximum number of browser instances.",
	}, func() float64 { return float64(sr.PoolSize()) }))

	cache := sr.FontCache()
	if cache == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: MetricFontCacheEntries,
			Help: "Font files held in memory.",
		}, func() float64 { return float64(cache.Stats().Entries) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: MetricFontCacheBytes,
			Help: "Bytes of font data held in memory.",
		}, func() float64 { return float64(cache.Stats().Bytes) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: MetricFontCacheHitsTotal,
			Help: "Font loads served from memory.",
		}, func() float64 { return float64(cache.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: MetricFontCacheMissesTotal,
			Help: "Font loads that read the font filesystem.",
		}, func() float64 { return float64(cache.Stats().Misses) }),
	)
}

// begin marks a render as started. The returned func records its outcome.
func (m *Metrics) begin(route string) func(err error) {
	start := time.Now()
	m.inFlight.Inc()
	return func(err error) {
		m.inFlight.Dec()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.renders.WithLabelValues(route, outcome(err)).Inc()
	}
}

func (m *Metrics) addPDFBytes(n int) {
	if n > 0 {
		m.pdfBytes.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather returns the current metric families.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	default:
		return outcomeError
	}
}
