package orbit

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gravitysim/gravity/internal/orbit"

var (
	instrumentsOnce sync.Once
	solves          metric.Int64Counter
	solveFailures   metric.Int64Counter
	maneuvers       metric.Int64Counter
)

func instruments() {
	instrumentsOnce.Do(func() {
		m := otel.Meter(instrumentationName)
		// creation errors leave the counter nil and recording is skipped
		solves, _ = m.Int64Counter("orbit.solver.solves",
			metric.WithDescription("Anomaly solves by regime and method"))
		solveFailures, _ = m.Int64Counter("orbit.solver.failures",
			metric.WithDescription("Anomaly solves that returned an error"))
		maneuvers, _ = m.Int64Counter("orbit.maneuvers",
			metric.WithDescription("Element changes by kind"))
	})
}

func recordSolve(regime Regime, method string, err error) {
	instruments()
	attrs := metric.WithAttributes(
		attribute.String("regime", regime.String()),
		attribute.String("method", method),
	)
	if err != nil {
		if solveFailures != nil {
			solveFailures.Add(context.Background(), 1, attrs)
		}
		return
	}
	if solves != nil {
		solves.Add(context.Background(), 1, attrs)
	}
}

func recordManeuver(kind string) {
	instruments()
	if maneuvers != nil {
		maneuvers.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}
