package estimators

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidForgetting = errors.New("forgetting factor must be in (0, 1]")
	ErrInvalidCovariance = errors.New("initial covariance must be positive")
)

const (
	DefaultForgettingFactor  = 0.98
	DefaultInitialCovariance = 1e6
)

// RecursiveLeastSquaresOptions represents input options for recursive least
// squares.
type RecursiveLeastSquaresOptions struct {
	// ForgettingFactor discounts past samples; 1.0 weighs all samples
	// equally.
	ForgettingFactor float64

	// InitialCovariance scales the identity initialization of the inverse
	// correlation matrix.
	InitialCovariance float64
}

// NewDefaultRecursiveLeastSquaresOptions returns a default set of recursive
// least squares options.
func NewDefaultRecursiveLeastSquaresOptions() *RecursiveLeastSquaresOptions {
	return &RecursiveLeastSquaresOptions{
		ForgettingFactor:  DefaultForgettingFactor,
		InitialCovariance: DefaultInitialCovariance,
	}
}

// Validate runs basic validation on recursive least squares options,
// returning a normalized copy.
func (o *RecursiveLeastSquaresOptions) Validate() (*RecursiveLeastSquaresOptions, error) {
	if o == nil {
		return NewDefaultRecursiveLeastSquaresOptions(), nil
	}
	opt := *o
	if opt.ForgettingFactor == 0 {
		opt.ForgettingFactor = DefaultForgettingFactor
	}
	if opt.InitialCovariance == 0 {
		opt.InitialCovariance = DefaultInitialCovariance
	}
	if opt.ForgettingFactor <= 0 || opt.ForgettingFactor > 1 {
		return nil, fmt.Errorf("got %f, %w", opt.ForgettingFactor, ErrInvalidForgetting)
	}
	if opt.InitialCovariance <= 0 {
		return nil, fmt.Errorf("got %f, %w", opt.InitialCovariance, ErrInvalidCovariance)
	}
	return &opt, nil
}

// RecursiveLeastSquares fits coefficients by sample-by-sample covariance
// updates with exponential forgetting. Useful when coefficients drift over
// the training horizon or when a streaming-compatible estimate is wanted.
type RecursiveLeastSquares struct {
	opt  *RecursiveLeastSquaresOptions
	coef []float64
}

// NewRecursiveLeastSquares initializes a recursive least squares estimator
// ready for fitting.
func NewRecursiveLeastSquares(opt *RecursiveLeastSquaresOptions) (*RecursiveLeastSquares, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RecursiveLeastSquares{opt: opt}, nil
}

// Fit runs the recursive update over the training rows in order.
func (r *RecursiveLeastSquares) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
		return ErrNoOptions
	}
	m, n, err := fitValidate(x, y)
	if err != nil {
		return err
	}

	lambda := r.opt.ForgettingFactor

	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		p.Set(i, i, r.opt.InitialCovariance)
	}

	theta := make([]float64, n)
	xi := make([]float64, n)
	px := make([]float64, n)

	for t := 0; t < m; t++ {
		for j := 0; j < n; j++ {
			xi[j] = x.At(t, j)
		}

		// px = P * x_t, denom = lambda + x_t' P x_t
		var denom float64
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += p.At(i, j) * xi[j]
			}
			px[i] = s
			denom += xi[i] * s
		}
		denom += lambda

		var pred float64
		for j := 0; j < n; j++ {
			pred += xi[j] * theta[j]
		}
		innov := y.At(t, 0) - pred

		for i := 0; i < n; i++ {
			theta[i] += px[i] / denom * innov
		}

		// P = (P - (P x)(P x)'/denom) / lambda
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				p.Set(i, j, (p.At(i, j)-px[i]*px[j]/denom)/lambda)
			}
		}
	}

	r.coef = theta
	return nil
}

// Coef returns a copy of the fitted coefficients.
func (r *RecursiveLeastSquares) Coef() []float64 {
	c := make([]float64, len(r.coef))
	copy(c, r.coef)
	return c
}

func (r *RecursiveLeastSquares) Name() string {
	return string(MethodRecursiveLeastSquares)
}
