package simulation

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gravitysim/gravity/internal/simulation"

var (
	instrumentsOnce sync.Once
	droppedEvents   metric.Int64Counter
	advanceFailures metric.Int64Counter
)

func instruments() {
	instrumentsOnce.Do(func() {
		m := otel.Meter(instrumentationName)
		droppedEvents, _ = m.Int64Counter("simulation.events.dropped",
			metric.WithDescription("Events discarded because the stream was full"))
		advanceFailures, _ = m.Int64Counter("simulation.advance.failures",
			metric.WithDescription("Bodies that failed to advance on a tick"))
	})
}

func recordDroppedEvent() {
	instruments()
	if droppedEvents != nil {
		droppedEvents.Add(context.Background(), 1)
	}
}

func recordAdvanceError() {
	instruments()
	if advanceFailures != nil {
		advanceFailures.Add(context.Background(), 1)
	}
}
