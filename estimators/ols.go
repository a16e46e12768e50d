package estimators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultCondBound is the condition number above which the normal equations
// are considered too unstable to solve directly.
const DefaultCondBound = 1e12

// LeastSquaresOptions represents input options for ordinary least squares.
type LeastSquaresOptions struct {
	// CondBound fails the fit with ErrIllConditioned when the design matrix
	// condition number exceeds it. Zero uses DefaultCondBound.
	CondBound float64
}

// NewDefaultLeastSquaresOptions returns a default set of least squares
// options.
func NewDefaultLeastSquaresOptions() *LeastSquaresOptions {
	return &LeastSquaresOptions{
		CondBound: DefaultCondBound,
	}
}

// Validate runs basic validation on least squares options, returning a
// normalized copy.
func (o *LeastSquaresOptions) Validate() (*LeastSquaresOptions, error) {
	if o == nil {
		return NewDefaultLeastSquaresOptions(), nil
	}
	opt := *o
	if opt.CondBound <= 0 {
		opt.CondBound = DefaultCondBound
	}
	return &opt, nil
}

// LeastSquares computes ordinary least squares using QR factorization. The
// constant regressor, when wanted, is expected as a design matrix column
// rather than a separate intercept.
type LeastSquares struct {
	opt *LeastSquaresOptions

	coef   []float64
	stderr []float64
}

// NewLeastSquares initializes an ordinary least squares estimator ready for
// fitting.
func NewLeastSquares(opt *LeastSquaresOptions) (*LeastSquares, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LeastSquares{opt: opt}, nil
}

// Fit solves the least squares problem for the given design matrix and
// target.
func (l *LeastSquares) Fit(x, y mat.Matrix) error {
	if l.opt == nil {
		return ErrNoOptions
	}
	m, n, err := fitValidate(x, y)
	if err != nil {
		return err
	}

	if cond := mat.Cond(x, 2); cond > l.opt.CondBound {
		return fmt.Errorf("condition number %.3e exceeds bound %.3e, %w", cond, l.opt.CondBound, ErrIllConditioned)
	}

	qr := new(mat.QR)
	qr.Factorize(mat.DenseCopyOf(x))

	q := new(mat.Dense)
	r := new(mat.Dense)
	qr.QTo(q)
	qr.RTo(r)

	yT := y.T()
	yq := new(mat.Dense)
	yq.Mul(yT, q)

	c := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		c[i] = yq.At(0, i)
		for j := i + 1; j < n; j++ {
			c[i] -= c[j] * r.At(i, j)
		}
		c[i] /= r.At(i, i)
	}
	l.coef = c

	l.stderr = standardErrors(x, y, c, r, m, n)
	return nil
}

// standardErrors computes per-coefficient standard errors from the residual
// variance and the inverse of R'R.
func standardErrors(x, y mat.Matrix, coef []float64, r mat.Matrix, m, n int) []float64 {
	if m <= n {
		return nil
	}

	coefMx := mat.NewDense(n, 1, coef)
	var yhat mat.Dense
	yhat.Mul(x, coefMx)

	var ssr float64
	for t := 0; t < m; t++ {
		d := y.At(t, 0) - yhat.At(t, 0)
		ssr += d * d
	}
	sigma2 := ssr / float64(m-n)

	rn := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			rn.Set(i, j, r.At(i, j))
		}
	}
	var rinv mat.Dense
	if err := rinv.Inverse(rn); err != nil {
		return nil
	}

	var cov mat.Dense
	cov.Mul(&rinv, rinv.T())

	se := make([]float64, n)
	for i := 0; i < n; i++ {
		se[i] = sqrtNonNeg(sigma2 * cov.At(i, i))
	}
	return se
}

// Coef returns a copy of the fitted coefficients.
func (l *LeastSquares) Coef() []float64 {
	c := make([]float64, len(l.coef))
	copy(c, l.coef)
	return c
}

// StandardErrors returns per-coefficient standard errors from the last fit,
// or nil when the system had no residual degrees of freedom.
func (l *LeastSquares) StandardErrors() []float64 {
	se := make([]float64, len(l.stderr))
	copy(se, l.stderr)
	return se
}

func (l *LeastSquares) Name() string {
	return string(MethodLeastSquares)
}
