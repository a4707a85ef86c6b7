package solver

import (
	"errors"
	"fmt"
	"math"
)

// Default limits for Solve.
const (
	DefaultTolerance  = 1e-10
	DefaultMaxNewton  = 30
	DefaultMaxBracket = 64
	DefaultMaxBisect  = 200
)

var (
	// ErrNoBracket is returned when no sign change is found around the seed.
	ErrNoBracket = errors.New("no sign change found")
	// ErrNoConvergence is returned when bisection exhausts its iteration budget.
	ErrNoConvergence = errors.New("root did not converge")
	// ErrNewtonFailed is returned by Newton when the iteration cannot continue.
	ErrNewtonFailed = errors.New("newton iteration failed")
)

// Func is a scalar function of one variable.
type Func func(x float64) float64

// Method identifies which strategy produced a root.
type Method int

const (
	MethodNewton Method = iota
	MethodBisection
)

func (m Method) String() string {
	switch m {
	case MethodNewton:
		return "newton"
	case MethodBisection:
		return "bisection"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Result is a solved root.
type Result struct {
	Root       float64
	Iterations int
	Method     Method
}

// Option configures Solve.
type Option func(*config)

type config struct {
	derivative Func
	seed       float64
	tolerance  float64
	maxNewton  int
	maxBracket int
	maxBisect  int
}

// WithDerivative enables Newton iteration using df.
func WithDerivative(df Func) Option {
	return func(c *config) {
		c.derivative = df
	}
}

// WithSeed sets the starting estimate. NaN means no seed.
func WithSeed(x0 float64) Option {
	return func(c *config) {
		c.seed = x0
	}
}

// WithTolerance sets the absolute tolerance on |f(x)|.
func WithTolerance(tol float64) Option {
	return func(c *config) {
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

// WithMaxNewton caps Newton iterations before falling back to bisection.
func WithMaxNewton(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxNewton = n
		}
	}
}

// WithMaxBracket caps how many times the search bracket is doubled.
func WithMaxBracket(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBracket = n
		}
	}
}

// WithMaxBisect caps bisection rounds.
func WithMaxBisect(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBisect = n
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		seed:       math.NaN(),
		tolerance:  DefaultTolerance,
		maxNewton:  DefaultMaxNewton,
		maxBracket: DefaultMaxBracket,
		maxBisect:  DefaultMaxBisect,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Solve finds x with f(x) = 0. With a derivative and a finite seed it tries
// damped Newton first; any Newton failure falls back to bracketed bisection
// centered on the seed (or 0).
func Solve(f Func, opts ...Option) (Result, error) {
	c := newConfig(opts)

	if c.derivative != nil && isFinite(c.seed) {
		x, n, err := newton(f, c.derivative, c.seed, c.tolerance, c.maxNewton)
		if err == nil {
			return Result{Root: x, Iterations: n, Method: MethodNewton}, nil
		}
	}

	center := c.seed
	if !isFinite(center) {
		center = 0
	}
	x, n, err := bisect(f, center, c.tolerance, c.maxBracket, c.maxBisect)
	res := Result{Root: x, Iterations: n, Method: MethodBisection}
	if err != nil {
		return res, err
	}
	return res, nil
}

// Newton runs damped Newton iteration from x0 and reports ErrNewtonFailed
// when the derivative vanishes, an iterate is not finite, or the budget runs out.
func Newton(f, df Func, x0 float64, opts ...Option) (Result, error) {
	c := newConfig(opts)
	x, n, err := newton(f, df, x0, c.tolerance, c.maxNewton)
	return Result{Root: x, Iterations: n, Method: MethodNewton}, err
}

// Bisect runs the bracketed bisection search around center.
func Bisect(f Func, center float64, opts ...Option) (Result, error) {
	c := newConfig(opts)
	x, n, err := bisect(f, center, c.tolerance, c.maxBracket, c.maxBisect)
	return Result{Root: x, Iterations: n, Method: MethodBisection}, err
}

func newton(f, df Func, x float64, tol float64, maxIter int) (float64, int, error) {
	for i := 0; i < maxIter; i++ {
		y := f(x)
		if !isFinite(y) {
			return x, i, fmt.Errorf("%w: f(%g) = %g", ErrNewtonFailed, x, y)
		}
		if math.Abs(y) < tol {
			return x, i, nil
		}
		d := df(x)
		if d == 0 || !isFinite(d) {
			return x, i, fmt.Errorf("%w: derivative %g at %g", ErrNewtonFailed, d, x)
		}
		next := 0.2*x + 0.8*(x-y/d)
		if !isFinite(next) {
			return x, i, fmt.Errorf("%w: step to %g", ErrNewtonFailed, next)
		}
		x = next
	}
	if math.Abs(f(x)) < tol {
		return x, maxIter, nil
	}
	return x, maxIter, fmt.Errorf("%w: no convergence after %d iterations", ErrNewtonFailed, maxIter)
}

func bisect(f Func, center, tol float64, maxBracket, maxIter int) (float64, int, error) {
	half := 1.0
	x0, x1 := center-half, center+half
	y0, y1 := f(x0), f(x1)
	for doublings := 0; !(y0*y1 <= 0); doublings++ {
		if doublings >= maxBracket {
			return center, 0, fmt.Errorf("%w: searched [%g, %g]", ErrNoBracket, x0, x1)
		}
		half *= 2
		x0, x1 = center-half, center+half
		y0, y1 = f(x0), f(x1)
	}

	if y0 == 0 {
		return x0, 0, nil
	}
	if y1 == 0 {
		return x1, 0, nil
	}

	xm := 0.5 * (x0 + x1)
	for i := 1; i <= maxIter; i++ {
		// alternate midpoint and secant steps
		if i%2 == 0 {
			s := x0 - y0*(x1-x0)/(y1-y0)
			if s > x0 && s < x1 {
				xm = s
			} else {
				xm = 0.5 * (x0 + x1)
			}
		} else {
			xm = 0.5 * (x0 + x1)
		}

		ym := f(xm)
		if math.Abs(ym) <= tol {
			return xm, i, nil
		}
		if (ym < 0) == (y0 < 0) {
			x0, y0 = xm, ym
		} else {
			x1, y1 = xm, ym
		}
		if x1-x0 <= tol*math.Max(1, math.Abs(xm)) {
			return 0.5 * (x0 + x1), i, nil
		}
	}
	return xm, maxIter, fmt.Errorf("%w: %d iterations, bracket [%g, %g]", ErrNoConvergence, maxIter, x0, x1)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
