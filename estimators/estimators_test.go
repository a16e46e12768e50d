package estimators

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// exact system y = 2 + 3*x1 + 4*x2 with an intercept column
func exactSystem() (x, y *mat.Dense) {
	x = mat.NewDense(5, 3, []float64{
		1, 0, 0,
		1, 3, 5,
		1, 9, 20,
		1, 12, 6,
		1, 15, 10,
	})
	y = mat.NewDense(5, 1, []float64{2, 31, 109, 62, 87})
	return x, y
}

func TestNew(t *testing.T) {
	testData := map[string]struct {
		method Method
		name   string
		err    error
	}{
		"default":   {"", "least_squares", nil},
		"ols":       {MethodLeastSquares, "least_squares", nil},
		"ridge":     {MethodRidge, "ridge", nil},
		"tls":       {MethodTotalLeastSquares, "total_least_squares", nil},
		"rls":       {MethodRecursiveLeastSquares, "recursive_least_squares", nil},
		"els":       {MethodExtendedLeastSquares, "extended_least_squares", nil},
		"unknown":   {Method("bayes"), "", ErrUnknownMethod},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			est, err := New(td.method)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.name, est.Name())
		})
	}
}

func TestLeastSquaresFit(t *testing.T) {
	x, y := exactSystem()

	est, err := NewLeastSquares(nil)
	require.Nil(t, err)
	require.Nil(t, est.Fit(x, y))

	assert.InDeltaSlice(t, []float64{2, 3, 4}, est.Coef(), 1e-8)

	// exact fit leaves zero residual variance
	se := est.StandardErrors()
	require.Len(t, se, 3)
	for _, v := range se {
		assert.InDelta(t, 0, v, 1e-6)
	}
}

func TestLeastSquaresStandardErrors(t *testing.T) {
	x, _ := exactSystem()
	y := mat.NewDense(5, 1, []float64{3, 30, 110, 61, 88})

	est, err := NewLeastSquares(nil)
	require.Nil(t, err)
	require.Nil(t, est.Fit(x, y))

	se := est.StandardErrors()
	require.Len(t, se, 3)
	for _, v := range se {
		assert.Greater(t, v, 0.0)
	}
}

func TestLeastSquaresIllConditioned(t *testing.T) {
	// duplicated regressor
	x := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
	})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	est, err := NewLeastSquares(nil)
	require.Nil(t, err)
	assert.ErrorIs(t, est.Fit(x, y), ErrIllConditioned)
}

func TestFitValidation(t *testing.T) {
	x, y := exactSystem()
	short := mat.NewDense(3, 1, []float64{1, 2, 3})

	testData := map[string]struct {
		x   mat.Matrix
		y   mat.Matrix
		err error
	}{
		"nil training": {nil, y, ErrNoTrainingMatrix},
		"nil target":   {x, nil, ErrNoTargetMatrix},
		"len mismatch": {x, short, ErrTargetLenMismatch},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			est, err := NewLeastSquares(nil)
			require.Nil(t, err)
			assert.ErrorIs(t, est.Fit(td.x, td.y), td.err)
		})
	}
}

func TestRidgeFit(t *testing.T) {
	x, y := exactSystem()

	// zero lambda reduces to ordinary least squares
	unreg, err := NewRidge(&RidgeOptions{Lambda: 0})
	require.Nil(t, err)
	require.Nil(t, unreg.Fit(x, y))
	assert.InDeltaSlice(t, []float64{2, 3, 4}, unreg.Coef(), 1e-8)

	// heavy regularization shrinks the solution norm
	reg, err := NewRidge(&RidgeOptions{Lambda: 1e4})
	require.Nil(t, err)
	require.Nil(t, reg.Fit(x, y))
	var regSq, unregSq float64
	for i, c := range reg.Coef() {
		regSq += c * c
		unregSq += unreg.Coef()[i] * unreg.Coef()[i]
	}
	assert.Less(t, regSq, unregSq)

	_, err = NewRidge(&RidgeOptions{Lambda: -1})
	assert.ErrorIs(t, err, ErrNegativeLambda)
}

func TestTotalLeastSquaresFit(t *testing.T) {
	x, y := exactSystem()

	est, err := NewTotalLeastSquares(nil)
	require.Nil(t, err)
	require.Nil(t, est.Fit(x, y))

	assert.InDeltaSlice(t, []float64{2, 3, 4}, est.Coef(), 1e-6)
}

func TestRecursiveLeastSquaresFit(t *testing.T) {
	x, y := exactSystem()

	est, err := NewRecursiveLeastSquares(&RecursiveLeastSquaresOptions{ForgettingFactor: 1.0})
	require.Nil(t, err)
	require.Nil(t, est.Fit(x, y))

	assert.InDeltaSlice(t, []float64{2, 3, 4}, est.Coef(), 1e-3)
}

func TestRecursiveLeastSquaresOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *RecursiveLeastSquaresOptions
		err error
	}{
		"nil defaults":        {nil, nil},
		"bad forgetting":      {&RecursiveLeastSquaresOptions{ForgettingFactor: 1.5}, ErrInvalidForgetting},
		"negative covariance": {&RecursiveLeastSquaresOptions{InitialCovariance: -1}, ErrInvalidCovariance},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, DefaultForgettingFactor, opt.ForgettingFactor)
			assert.Equal(t, DefaultInitialCovariance, opt.InitialCovariance)
		})
	}
}

// 60 samples of y = 1.5*x1 - 0.7*x2 with moving-average noise, the case the
// auxiliary noise model exists for
func elsSystem() (x, y *mat.Dense) {
	rng := rand.New(rand.NewPCG(11, 11))
	rows := 60

	x = mat.NewDense(rows, 2, nil)
	y = mat.NewDense(rows, 1, nil)
	prevW := 0.0
	for t := 0; t < rows; t++ {
		x1 := rng.Float64()*2 - 1
		x2 := rng.Float64()*2 - 1
		x.Set(t, 0, x1)
		x.Set(t, 1, x2)

		w := rng.NormFloat64() * 0.05
		y.Set(t, 0, 1.5*x1-0.7*x2+w+0.8*prevW)
		prevW = w
	}
	return x, y
}

func TestExtendedLeastSquaresFit(t *testing.T) {
	x, y := elsSystem()

	est, err := NewExtendedLeastSquares(nil)
	require.Nil(t, err)
	require.Nil(t, est.Fit(x, y))

	coef := est.Coef()
	require.Len(t, coef, 2)
	assert.InDelta(t, 1.5, coef[0], 0.1)
	assert.InDelta(t, -0.7, coef[1], 0.1)
}

func TestExtendedLeastSquaresShortData(t *testing.T) {
	// too few rows for the auxiliary noise model, the plain fit stands
	x, y := exactSystem()

	est, err := NewExtendedLeastSquares(nil)
	require.Nil(t, err)
	require.Nil(t, est.Fit(x, y))

	assert.InDeltaSlice(t, []float64{2, 3, 4}, est.Coef(), 1e-8)
}

func TestExtendedLeastSquaresNonConvergence(t *testing.T) {
	x, y := elsSystem()

	est, err := NewExtendedLeastSquares(&ExtendedLeastSquaresOptions{
		MaxIter:   1,
		Tolerance: 1e-12,
	})
	require.Nil(t, err)

	err = est.Fit(x, y)
	assert.ErrorIs(t, err, ErrNonConvergence)

	// best-so-far coefficients stay available
	coef := est.Coef()
	require.Len(t, coef, 2)
	assert.InDelta(t, 1.5, coef[0], 0.15)
	assert.InDelta(t, -0.7, coef[1], 0.15)
}
