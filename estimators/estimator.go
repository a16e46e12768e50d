// Package estimators is a collection of coefficient estimation
// implementations for a selected regressor structure: ordinary, ridge,
// total, recursive, and extended least squares.
package estimators

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoOptions         = errors.New("no initialized estimator options")
	ErrNoTrainingMatrix  = errors.New("no training matrix")
	ErrNoTargetMatrix    = errors.New("no target matrix")
	ErrTargetLenMismatch = errors.New("target length does not match training rows")
	ErrNotFitted         = errors.New("estimator has not been fitted yet")
	ErrIllConditioned    = errors.New("normal equations exceed the condition bound, fall back to the orthogonal-domain solve")
	ErrNonConvergence    = errors.New("iterative estimation exceeded max iterations without meeting tolerance")
	ErrUnknownMethod     = errors.New("unknown estimation method")
)

// Estimator fits coefficients of a design submatrix against a target
// vector.
type Estimator interface {
	Fit(x, y mat.Matrix) error
	Coef() []float64
	Name() string
}

// StandardErrorer is implemented by estimators that expose per-coefficient
// standard errors after a fit, used to flag statistically insignificant
// terms.
type StandardErrorer interface {
	StandardErrors() []float64
}

// Method names a coefficient estimation method.
type Method string

const (
	MethodLeastSquares          Method = "least_squares"
	MethodRidge                 Method = "ridge"
	MethodTotalLeastSquares     Method = "total_least_squares"
	MethodRecursiveLeastSquares Method = "recursive_least_squares"
	MethodExtendedLeastSquares  Method = "extended_least_squares"
)

// New returns an estimator for a method with default options.
func New(method Method) (Estimator, error) {
	switch method {
	case MethodLeastSquares, "":
		return NewLeastSquares(nil)
	case MethodRidge:
		return NewRidge(nil)
	case MethodTotalLeastSquares:
		return NewTotalLeastSquares(nil)
	case MethodRecursiveLeastSquares:
		return NewRecursiveLeastSquares(nil)
	case MethodExtendedLeastSquares:
		return NewExtendedLeastSquares(nil)
	}
	return nil, fmt.Errorf("got %q, %w", method, ErrUnknownMethod)
}

func fitValidate(x, y mat.Matrix) (rows, cols int, err error) {
	if x == nil {
		return 0, 0, ErrNoTrainingMatrix
	}
	if y == nil {
		return 0, 0, ErrNoTargetMatrix
	}
	rows, cols = x.Dims()
	ym, _ := y.Dims()
	if ym != rows {
		return 0, 0, fmt.Errorf("training data has %d rows and target has %d, %w", rows, ym, ErrTargetLenMismatch)
	}
	return rows, cols, nil
}
