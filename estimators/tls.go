package estimators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultTLSTolerance guards the total least squares denominator against a
// degenerate smallest singular direction.
const DefaultTLSTolerance = 1e-12

// TotalLeastSquaresOptions represents input options for total least
// squares.
type TotalLeastSquaresOptions struct {
	// Tolerance is the smallest acceptable magnitude of the target
	// component in the smallest right singular vector.
	Tolerance float64
}

// NewDefaultTotalLeastSquaresOptions returns a default set of total least
// squares options.
func NewDefaultTotalLeastSquaresOptions() *TotalLeastSquaresOptions {
	return &TotalLeastSquaresOptions{
		Tolerance: DefaultTLSTolerance,
	}
}

// Validate runs basic validation on total least squares options, returning
// a normalized copy.
func (o *TotalLeastSquaresOptions) Validate() (*TotalLeastSquaresOptions, error) {
	if o == nil {
		return NewDefaultTotalLeastSquaresOptions(), nil
	}
	opt := *o
	if opt.Tolerance <= 0 {
		opt.Tolerance = DefaultTLSTolerance
	}
	return &opt, nil
}

// TotalLeastSquares solves the errors-in-variables problem via singular
// value decomposition of the augmented matrix [X y], for regressors assumed
// to carry measurement noise themselves.
type TotalLeastSquares struct {
	opt  *TotalLeastSquaresOptions
	coef []float64
}

// NewTotalLeastSquares initializes a total least squares estimator ready
// for fitting.
func NewTotalLeastSquares(opt *TotalLeastSquaresOptions) (*TotalLeastSquares, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &TotalLeastSquares{opt: opt}, nil
}

// Fit computes the TLS solution from the right singular vector of [X y]
// paired with the smallest singular value.
func (t *TotalLeastSquares) Fit(x, y mat.Matrix) error {
	if t.opt == nil {
		return ErrNoOptions
	}
	m, n, err := fitValidate(x, y)
	if err != nil {
		return err
	}

	aug := mat.NewDense(m, n+1, nil)
	col := make([]float64, m)
	for j := 0; j < n; j++ {
		mat.Col(col, j, x)
		aug.SetCol(j, col)
	}
	mat.Col(col, 0, y)
	aug.SetCol(n, col)

	var svd mat.SVD
	if ok := svd.Factorize(aug, mat.SVDThin); !ok {
		return fmt.Errorf("svd of augmented matrix failed to converge, %w", ErrIllConditioned)
	}

	var v mat.Dense
	svd.VTo(&v)

	pivot := v.At(n, n)
	if pivot > -t.opt.Tolerance && pivot < t.opt.Tolerance {
		return fmt.Errorf("target component of smallest singular direction is %.3e, %w", pivot, ErrIllConditioned)
	}

	coef := make([]float64, n)
	for i := 0; i < n; i++ {
		coef[i] = -v.At(i, n) / pivot
	}
	t.coef = coef
	return nil
}

// Coef returns a copy of the fitted coefficients.
func (t *TotalLeastSquares) Coef() []float64 {
	c := make([]float64, len(t.coef))
	copy(c, t.coef)
	return c
}

func (t *TotalLeastSquares) Name() string {
	return string(MethodTotalLeastSquares)
}
