// Package metrics exposes Prometheus collectors fed by machine lifecycle hooks.
package metrics

import (
	"context"
	"time"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the counters of every machine sharing one registry.
type Collector struct {
	Steps       prometheus.Counter
	Halts       *prometheus.CounterVec
	Edits       *prometheus.CounterVec
	Undo        *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turing_steps_total",
			Help: "Total number of forward simulation steps",
		}),
		Halts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turing_halts_total",
			Help: "Total number of halts by outcome",
		}, []string{"outcome"}),
		Edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turing_edits_total",
			Help: "Total number of recorded edits by action kind",
		}, []string{"kind"}),
		Undo: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turing_undo_total",
			Help: "Total number of undo and redo replays",
		}, []string{"direction"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "turing_run_duration_seconds",
			Help:    "Duration of headless runs",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	for _, col := range []prometheus.Collector{c.Steps, c.Halts, c.Edits, c.Undo, c.RunDuration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			if !e.Backward {
				c.Steps.Inc()
			}
		},
		OnHalt: func(_ context.Context, e *domain.HaltEvent) {
			c.Halts.WithLabelValues(string(e.Outcome)).Inc()
		},
		OnEdit: func(_ context.Context, e *domain.EditEvent) {
			c.Edits.WithLabelValues(e.Kind).Inc()
		},
		OnUndo: func(_ context.Context, e *domain.EditEvent) {
			dir := "undo"
			if e.Redo {
				dir = "redo"
			}
			c.Undo.WithLabelValues(dir).Inc()
		},
	}
}

// ObserveRun records the duration of a run started at start.
func (c *Collector) ObserveRun(start time.Time) {
	c.RunDuration.Observe(time.Since(start).Seconds())
}
