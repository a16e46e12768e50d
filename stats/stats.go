// Package stats computes validation diagnostics over a selected model
// structure.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/gosysid/go-narmax/estimators"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMinimumFeatures = errors.New("need at least 2 regressors to compute VIF")
	ErrFeatureLen      = errors.New("must have at least 2 samples per regressor")
)

// ResidualVariance returns the unbiased variance of a residual sequence.
func ResidualVariance(residual []float64) float64 {
	return stat.Variance(residual, nil)
}

// VarianceInflationFactors regresses each column of the selected submatrix
// on the remaining columns and reports 1/(1-R^2) per column. High values
// flag near-collinear regressor subsets whose coefficient estimates are
// unreliable. Columns that cannot be regressed (e.g. an exact linear
// combination of the others) report +Inf.
func VarianceInflationFactors(x mat.Matrix) ([]float64, error) {
	m, n := x.Dims()
	if n < 2 {
		return nil, ErrMinimumFeatures
	}
	if m < 2 {
		return nil, ErrFeatureLen
	}

	vifs := make([]float64, n)
	target := make([]float64, m)
	buf := make([]float64, m)

	for j := 0; j < n; j++ {
		mat.Col(target, j, x)

		others := mat.NewDense(m, n-1, nil)
		k := 0
		for jj := 0; jj < n; jj++ {
			if jj == j {
				continue
			}
			mat.Col(buf, jj, x)
			others.SetCol(k, buf)
			k++
		}

		vif, err := vifOne(others, target, m)
		if err != nil {
			return nil, err
		}
		vifs[j] = vif
	}
	return vifs, nil
}

func vifOne(others *mat.Dense, target []float64, m int) (float64, error) {
	ls, err := estimators.NewLeastSquares(nil)
	if err != nil {
		return 0, err
	}

	y := mat.NewDense(m, 1, append([]float64(nil), target...))
	if err := ls.Fit(others, y); err != nil {
		if errors.Is(err, estimators.ErrIllConditioned) {
			return math.Inf(1), nil
		}
		return 0, fmt.Errorf("regressing column for VIF: %w", err)
	}

	coef := ls.Coef()
	coefMx := mat.NewDense(len(coef), 1, coef)
	var pred mat.Dense
	pred.Mul(others, coefMx)

	rsq := stat.RSquaredFrom(mat.Col(nil, 0, &pred), target, nil)
	if rsq >= 1 {
		return math.Inf(1), nil
	}
	return 1.0 / (1.0 - rsq), nil
}
