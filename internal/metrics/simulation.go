package metrics

import (
	"math"

	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tickDesc = prometheus.NewDesc("gravity_simulation_tick",
		"Ticks processed by the simulator", nil, nil)
	simTimeDesc = prometheus.NewDesc("gravity_simulation_time",
		"Current simulated time", nil, nil)
	speedDesc = prometheus.NewDesc("gravity_simulation_speed",
		"Simulated milliseconds per real millisecond", nil, nil)
	runningDesc = prometheus.NewDesc("gravity_simulation_running",
		"1 while the clock is running", nil, nil)
	eccentricityDesc = prometheus.NewDesc("gravity_body_eccentricity",
		"Orbit eccentricity per body", []string{"body", "regime"}, nil)
	angularMomentumDesc = prometheus.NewDesc("gravity_body_angular_momentum",
		"Specific angular momentum per body", []string{"body"}, nil)
	radiusDesc = prometheus.NewDesc("gravity_body_radius",
		"Distance from the central mass per body", []string{"body"}, nil)
)

// SimulationCollector reports the simulator snapshot at scrape time.
type SimulationCollector struct {
	snapshot func() simulation.Snapshot
}

// NewSimulationCollector wraps a snapshot source such as
// (*simulation.Simulator).Snapshot.
func NewSimulationCollector(snapshot func() simulation.Snapshot) *SimulationCollector {
	return &SimulationCollector{snapshot: snapshot}
}

// Describe implements prometheus.Collector.
func (c *SimulationCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- tickDesc
	ch <- simTimeDesc
	ch <- speedDesc
	ch <- runningDesc
	ch <- eccentricityDesc
	ch <- angularMomentumDesc
	ch <- radiusDesc
}

// Collect implements prometheus.Collector.
func (c *SimulationCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()

	running := 0.0
	if snap.Running {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(tickDesc, prometheus.CounterValue, float64(snap.Tick))
	ch <- prometheus.MustNewConstMetric(simTimeDesc, prometheus.GaugeValue, snap.SimTime)
	ch <- prometheus.MustNewConstMetric(speedDesc, prometheus.GaugeValue, snap.Speed)
	ch <- prometheus.MustNewConstMetric(runningDesc, prometheus.GaugeValue, running)

	for _, b := range snap.Bodies {
		ch <- prometheus.MustNewConstMetric(eccentricityDesc, prometheus.GaugeValue, b.Stats.E, b.Name, b.Regime)
		ch <- prometheus.MustNewConstMetric(angularMomentumDesc, prometheus.GaugeValue, b.Stats.L, b.Name)
		ch <- prometheus.MustNewConstMetric(radiusDesc, prometheus.GaugeValue, math.Hypot(b.Position.X, b.Position.Y), b.Name)
	}
}
