// Package clock drives simulated time from the wall clock.
package clock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gravitysim/gravity/internal/clock"

// Defaults for a new Clock.
const (
	DefaultSpeed    = 0.3
	DefaultInterval = 18 * time.Millisecond
)

// ErrInvalidSpeed is returned by SetSpeed for negative or non-finite values.
var ErrInvalidSpeed = errors.New("invalid clock speed")

// Listener receives the simulated time after each tick.
type Listener func(t float64)

// Option configures a Clock.
type Option func(*Clock)

// WithSpeed sets the initial simulated milliseconds per real millisecond.
func WithSpeed(speed float64) Option {
	return func(c *Clock) {
		if speed >= 0 && !math.IsInf(speed, 0) {
			c.speed = speed
		}
	}
}

// WithInterval sets the real time between ticks.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Clock) {
		c.logger = l
	}
}

// Clock advances simulated time while running and notifies listeners on each
// tick. Listeners run on the clock's goroutine, outside its lock, so they may
// call back into the clock.
type Clock struct {
	mu         sync.Mutex
	speed      float64
	interval   time.Duration
	now        func() time.Time
	simTime    float64
	last       time.Time
	running    bool
	generation uint64
	timer      *time.Timer
	listeners  []Listener

	logger  *slog.Logger
	ticks   metric.Int64Counter
	elapsed metric.Float64Histogram
}

// New creates a stopped clock at simulated time 0.
func New(opts ...Option) (*Clock, error) {
	c := &Clock{
		speed:    DefaultSpeed,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	m := otel.Meter(instrumentationName)
	var err error
	c.ticks, err = m.Int64Counter("clock.ticks",
		metric.WithDescription("Clock ticks delivered to listeners"))
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	c.elapsed, err = m.Float64Histogram("clock.tick.elapsed",
		metric.WithDescription("Real time between ticks"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("creating elapsed histogram: %w", err)
	}
	return c, nil
}

// Start begins ticking. It is a no-op when already running.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
}

func (c *Clock) startLocked() {
	if c.running {
		return
	}
	c.running = true
	c.last = c.now()
	c.generation++
	c.schedule(c.generation)
	c.logger.Debug("clock started", "time", c.simTime, "speed", c.speed)
}

// Stop halts ticking. A tick already delivering to listeners finishes.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Clock) stopLocked() {
	if !c.running {
		return
	}
	c.running = false
	c.last = time.Time{}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.logger.Debug("clock stopped", "time", c.simTime)
}

// Pause toggles between running and stopped.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.stopLocked()
		return
	}
	c.startLocked()
}

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetSpeed changes the rate applied from the next tick on.
func (c *Clock) SetSpeed(speed float64) error {
	if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidSpeed, speed)
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
	return nil
}

// Speed returns simulated milliseconds per real millisecond.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Interval returns the real time between ticks.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// Time returns the current simulated time.
func (c *Clock) Time() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simTime
}

// AddListener registers fn to run after every tick.
func (c *Clock) AddListener(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// schedule must be called with mu held.
func (c *Clock) schedule(gen uint64) {
	c.timer = time.AfterFunc(c.interval, func() { c.fire(gen) })
}

func (c *Clock) fire(gen uint64) {
	if !c.tick(gen) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && c.generation == gen {
		c.schedule(gen)
	}
}

// tick advances simulated time and runs the listeners. It reports false when
// the clock was stopped or restarted since gen was scheduled.
func (c *Clock) tick(gen uint64) bool {
	c.mu.Lock()
	if !c.running || c.generation != gen {
		c.mu.Unlock()
		return false
	}
	now := c.now()
	elapsed := float64(now.Sub(c.last)) / float64(time.Millisecond)
	c.last = now
	c.simTime += elapsed * c.speed
	t := c.simTime
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	ctx := context.Background()
	c.ticks.Add(ctx, 1)
	c.elapsed.Record(ctx, elapsed)

	for _, fn := range listeners {
		fn(t)
	}
	return true
}
