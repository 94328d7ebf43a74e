// Package metrics exposes run counters for Prometheus. A nil *Recorder is
// valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentiment_trader"

type Recorder struct {
	headlinesFetched *prometheus.CounterVec
	headlinesScored  *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	mismatched       *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	retries          prometheus.Counter
	averageScore     *prometheus.GaugeVec
	selections       *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		headlinesFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "headlines_fetched_total",
				Help:      "Headlines returned by the news source inside the collection window",
			},
			[]string{"ticker"},
		),
		headlinesScored: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "headlines_scored_total",
				Help:      "Headlines scored by the LLM, by sentiment",
			},
			[]string{"sentiment"},
		),
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "record_cache_hits_total",
				Help:      "Headlines reused from the record cache instead of being rescored",
			},
			[]string{"ticker"},
		),
		mismatched: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "headlines_other_session_total",
				Help:      "Headlines in the window whose mapped session differs from the run's buy time",
			},
			[]string{"ticker"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Absorbed per-item failures by type",
			},
			[]string{"type"},
		),
		retries: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_retries_total",
				Help:      "Scoring calls retried after a rate limit rejection",
			},
		),
		averageScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ticker_average_score",
				Help:      "Latest average sentiment per ticker",
			},
			[]string{"ticker"},
		),
		selections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selections_total",
				Help:      "Tickers selected for a trade action",
			},
			[]string{"action"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of run stages in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) HeadlinesFetched(ticker string, n int) {
	if r == nil {
		return
	}
	r.headlinesFetched.WithLabelValues(ticker).Add(float64(n))
}

func (r *Recorder) HeadlineScored(sentiment string) {
	if r == nil {
		return
	}
	r.headlinesScored.WithLabelValues(sentiment).Inc()
}

func (r *Recorder) CacheHit(ticker string) {
	if r == nil {
		return
	}
	r.cacheHits.WithLabelValues(ticker).Inc()
}

func (r *Recorder) Mismatched(ticker string, n int) {
	if r == nil {
		return
	}
	r.mismatched.WithLabelValues(ticker).Add(float64(n))
}

// Error counts an absorbed failure, e.g. "fetch", "score", "rate_limit".
func (r *Recorder) Error(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) Retry() {
	if r == nil {
		return
	}
	r.retries.Inc()
}

func (r *Recorder) AverageScore(ticker string, avg float64) {
	if r == nil {
		return
	}
	r.averageScore.WithLabelValues(ticker).Set(avg)
}

func (r *Recorder) Selected(action string, n int) {
	if r == nil {
		return
	}
	r.selections.WithLabelValues(action).Add(float64(n))
}

// Since observes the time elapsed from start for op.
func (r *Recorder) Since(op string, start time.Time) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
