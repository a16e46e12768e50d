package estimators

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrNegativeLambda = errors.New("negative lambda")

// DefaultRidgeLambda is the default L2 regularization multiplier.
const DefaultRidgeLambda = 0.01

// RidgeOptions represents input options for ridge regression.
type RidgeOptions struct {
	// Lambda is the L2 multiplier added to the normal equations diagonal.
	// Zero converges to ordinary least squares.
	Lambda float64
}

// NewDefaultRidgeOptions returns a default set of ridge regression options.
func NewDefaultRidgeOptions() *RidgeOptions {
	return &RidgeOptions{
		Lambda: DefaultRidgeLambda,
	}
}

// Validate runs basic validation on ridge options, returning a normalized
// copy.
func (o *RidgeOptions) Validate() (*RidgeOptions, error) {
	if o == nil {
		return NewDefaultRidgeOptions(), nil
	}
	if o.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	opt := *o
	return &opt, nil
}

// Ridge computes L2-regularized least squares through the regularized
// normal equations. The regularization keeps the solve well posed on
// near-collinear regressor subsets, at the cost of biased coefficients.
type Ridge struct {
	opt  *RidgeOptions
	coef []float64
}

// NewRidge initializes a ridge regression estimator ready for fitting.
func NewRidge(opt *RidgeOptions) (*Ridge, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Ridge{opt: opt}, nil
}

// Fit solves (X'X + lambda*I) theta = X'y.
func (r *Ridge) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
		return ErrNoOptions
	}
	_, n, err := fitValidate(x, y)
	if err != nil {
		return err
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for i := 0; i < n; i++ {
		xtx.Set(i, i, xtx.At(i, i)+r.opt.Lambda)
	}

	var xty mat.Dense
	xty.Mul(x.T(), y)

	var theta mat.Dense
	if err := theta.Solve(&xtx, &xty); err != nil {
		return fmt.Errorf("regularized normal equations are singular, %w", ErrIllConditioned)
	}

	coef := make([]float64, n)
	for i := 0; i < n; i++ {
		coef[i] = theta.At(i, 0)
	}
	r.coef = coef
	return nil
}

// Coef returns a copy of the fitted coefficients.
func (r *Ridge) Coef() []float64 {
	c := make([]float64, len(r.coef))
	copy(c, r.coef)
	return c
}

func (r *Ridge) Name() string {
	return string(MethodRidge)
}
