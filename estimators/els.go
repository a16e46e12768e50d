package estimators

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidNoiseLag  = errors.New("noise lag must be at least 1")
	ErrInvalidMaxIter   = errors.New("max iterations must be at least 1")
	ErrInvalidTolerance = errors.New("tolerance must be positive")
)

const (
	DefaultNoiseLag     = 2
	DefaultELSMaxIter   = 30
	DefaultELSTolerance = 1e-8
)

// ExtendedLeastSquaresOptions represents input options for extended least
// squares.
type ExtendedLeastSquaresOptions struct {
	// NoiseLag is the number of lagged residual terms in the auxiliary
	// noise model.
	NoiseLag int

	// MaxIter bounds the refinement iterations.
	MaxIter int

	// Tolerance is the largest coefficient change below which the
	// refinement has converged.
	Tolerance float64

	// LeastSquares configures the inner solver.
	LeastSquares *LeastSquaresOptions
}

// NewDefaultExtendedLeastSquaresOptions returns a default set of extended
// least squares options.
func NewDefaultExtendedLeastSquaresOptions() *ExtendedLeastSquaresOptions {
	return &ExtendedLeastSquaresOptions{
		NoiseLag:     DefaultNoiseLag,
		MaxIter:      DefaultELSMaxIter,
		Tolerance:    DefaultELSTolerance,
		LeastSquares: NewDefaultLeastSquaresOptions(),
	}
}

// Validate runs basic validation on extended least squares options,
// returning a normalized copy.
func (o *ExtendedLeastSquaresOptions) Validate() (*ExtendedLeastSquaresOptions, error) {
	if o == nil {
		return NewDefaultExtendedLeastSquaresOptions(), nil
	}
	opt := *o
	if opt.NoiseLag == 0 {
		opt.NoiseLag = DefaultNoiseLag
	}
	if opt.MaxIter == 0 {
		opt.MaxIter = DefaultELSMaxIter
	}
	if opt.Tolerance == 0 {
		opt.Tolerance = DefaultELSTolerance
	}
	if opt.NoiseLag < 1 {
		return nil, fmt.Errorf("got %d, %w", opt.NoiseLag, ErrInvalidNoiseLag)
	}
	if opt.MaxIter < 1 {
		return nil, fmt.Errorf("got %d, %w", opt.MaxIter, ErrInvalidMaxIter)
	}
	if opt.Tolerance <= 0 {
		return nil, fmt.Errorf("got %f, %w", opt.Tolerance, ErrInvalidTolerance)
	}
	ls, err := opt.LeastSquares.Validate()
	if err != nil {
		return nil, err
	}
	opt.LeastSquares = ls
	return &opt, nil
}

// ExtendedLeastSquares removes the bias that correlated residuals introduce
// into a plain least squares fit: it alternates between estimating the
// process coefficients and an auxiliary moving-average noise model over
// lagged residuals, re-fitting until the process coefficients settle.
type ExtendedLeastSquares struct {
	opt  *ExtendedLeastSquaresOptions
	coef []float64
}

// NewExtendedLeastSquares initializes an extended least squares estimator
// ready for fitting.
func NewExtendedLeastSquares(opt *ExtendedLeastSquaresOptions) (*ExtendedLeastSquares, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &ExtendedLeastSquares{opt: opt}, nil
}

// Fit iteratively refines the coefficients. If the refinement exhausts
// MaxIter the latest coefficients are kept on the estimator and the error
// wraps ErrNonConvergence, so a partial answer remains available.
func (e *ExtendedLeastSquares) Fit(x, y mat.Matrix) error {
	if e.opt == nil {
		return ErrNoOptions
	}
	m, n, err := fitValidate(x, y)
	if err != nil {
		return err
	}

	base, err := NewLeastSquares(e.opt.LeastSquares)
	if err != nil {
		return err
	}
	if err := base.Fit(x, y); err != nil {
		return err
	}
	coef := base.Coef()

	nl := e.opt.NoiseLag
	extRows := m - nl
	if extRows <= n+nl {
		// not enough rows for the auxiliary noise model; the plain fit
		// stands
		e.coef = coef
		return nil
	}

	residual := make([]float64, m)
	ext := mat.NewDense(extRows, n+nl, nil)
	extY := mat.NewDense(extRows, 1, nil)

	for iter := 0; iter < e.opt.MaxIter; iter++ {
		for t := 0; t < m; t++ {
			var pred float64
			for j := 0; j < n; j++ {
				pred += x.At(t, j) * coef[j]
			}
			residual[t] = y.At(t, 0) - pred
		}

		// extended design: process terms plus lagged residuals, trimmed to
		// rows where every residual lag is defined
		for t := 0; t < extRows; t++ {
			for j := 0; j < n; j++ {
				ext.Set(t, j, x.At(t+nl, j))
			}
			for lag := 1; lag <= nl; lag++ {
				ext.Set(t, n+lag-1, residual[t+nl-lag])
			}
			extY.Set(t, 0, y.At(t+nl, 0))
		}

		inner, err := NewLeastSquares(e.opt.LeastSquares)
		if err != nil {
			return err
		}
		if err := inner.Fit(ext, extY); err != nil {
			return err
		}
		next := inner.Coef()[:n]

		var maxDelta float64
		for j := 0; j < n; j++ {
			if d := math.Abs(next[j] - coef[j]); d > maxDelta {
				maxDelta = d
			}
		}
		coef = next

		if maxDelta < e.opt.Tolerance {
			e.coef = coef
			return nil
		}
	}

	e.coef = coef
	return fmt.Errorf("after %d iterations, %w", e.opt.MaxIter, ErrNonConvergence)
}

// Coef returns a copy of the latest coefficients, also populated when Fit
// returned ErrNonConvergence.
func (e *ExtendedLeastSquares) Coef() []float64 {
	c := make([]float64, len(e.coef))
	copy(c, e.coef)
	return c
}

func (e *ExtendedLeastSquares) Name() string {
	return string(MethodExtendedLeastSquares)
}
