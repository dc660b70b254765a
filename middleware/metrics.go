package middleware

import (
	"context"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/rise-and-shine/cmdbus/command"
)

const metricPrefix = "cmdbus."

// Metrics records a timer and an error counter per command key:
//
//	cmdbus.<key>.duration
//	cmdbus.<key>.errors
type Metrics struct {
	registry metrics.Registry
}

// NewMetrics uses metrics.DefaultRegistry when registry is nil.
func NewMetrics(registry metrics.Registry) *Metrics {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}
	return &Metrics{registry: registry}
}

func (m *Metrics) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	name := metricPrefix + commandKey(cmd)
	start := time.Now()

	result, err := next(ctx, cmd)

	metrics.GetOrRegisterTimer(name+".duration", m.registry).UpdateSince(start)
	if err != nil {
		metrics.GetOrRegisterCounter(name+".errors", m.registry).Inc(1)
	}

	return result, err
}
