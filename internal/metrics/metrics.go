// internal/metrics/metrics.go

// Package metrics exposes task observations as Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/buttonfetch/internal/button"
	"github.com/tamzrod/buttonfetch/internal/fetch"
	"github.com/tamzrod/buttonfetch/internal/link"
)

const namespace = "buttonfetch"

// Fetch result label values.
const (
	ResultOK          = "ok"
	ResultTooLarge    = "too_large"
	ResultBadEncoding = "bad_encoding"
	ResultError       = "error"
)

// Collectors implements the observer interfaces of every task.
type Collectors struct {
	reg *prometheus.Registry

	buttonOutcomes *prometheus.CounterVec
	linkState      prometheus.Gauge
	linkAttempts   *prometheus.CounterVec
	fetchState     prometheus.Gauge
	fetches        *prometheus.CounterVec
	bodyBytes      prometheus.Histogram
	heartbeats     prometheus.Counter
}

// New registers all collectors on a private registry.
func New() *Collectors {
	c := &Collectors{
		reg: prometheus.NewRegistry(),
		buttonOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "button",
			Name:      "outcomes_total",
			Help:      "Debounce outcomes by kind.",
		}, []string{"outcome"}),
		linkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "state",
			Help:      "Link manager state (0 idle, 1 starting, 2 started, 3 associating, 4 associated).",
		}),
		linkAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "attempts_total",
			Help:      "Association attempts by result.",
		}, []string{"result"}),
		fetchState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "state",
			Help:      "Fetch worker pipeline state.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Completed fetch iterations by result.",
		}, []string{"result"}),
		bodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "body_bytes",
			Help:      "Size of fetched bodies.",
			Buckets:   []float64{64, 256, 512, 1024, 2048, 2560},
		}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "beats_total",
			Help:      "Heartbeat prompts emitted.",
		}),
	}

	c.reg.MustRegister(
		c.buttonOutcomes,
		c.linkState,
		c.linkAttempts,
		c.fetchState,
		c.fetches,
		c.bodyBytes,
		c.heartbeats,
	)
	return c
}

// Registry is what the admin /metrics handler gathers from.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.reg
}

// GaugeFunc registers a gauge sampled at scrape time.
func (c *Collectors) GaugeFunc(subsystem, name, help string, fn func() float64) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

// ---- observers ----

func (c *Collectors) ButtonOutcome(o button.Outcome) {
	c.buttonOutcomes.WithLabelValues(o.String()).Inc()
}

func (c *Collectors) LinkState(s link.State) {
	c.linkState.Set(float64(s))
}

func (c *Collectors) LinkAttempt(err error) {
	if err != nil {
		c.linkAttempts.WithLabelValues(ResultError).Inc()
		return
	}
	c.linkAttempts.WithLabelValues(ResultOK).Inc()
}

func (c *Collectors) FetchState(s fetch.State) {
	c.fetchState.Set(float64(s))
}

func (c *Collectors) FetchDone(n int, err error) {
	c.fetches.WithLabelValues(FetchResult(err)).Inc()
	if err == nil {
		c.bodyBytes.Observe(float64(n))
	}
}

func (c *Collectors) Beat() {
	c.heartbeats.Inc()
}

// FetchResult maps a fetch outcome to its label value.
func FetchResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, fetch.ErrBodyTooLarge):
		return ResultTooLarge
	case errors.Is(err, fetch.ErrInvalidEncoding):
		return ResultBadEncoding
	default:
		return ResultError
	}
}
