package orthogonal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// three independent columns plus a fourth that is an exact linear
// combination of the first two
func testDesign() *mat.Dense {
	x := mat.NewDense(8, 4, nil)
	c0 := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	c1 := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	c2 := []float64{1, 4, 9, 16, 25, 36, 49, 64}
	c3 := make([]float64, 8)
	floats.AddScaledTo(c3, c0, 2.0, c1)
	x.SetCol(0, c0)
	x.SetCol(1, c1)
	x.SetCol(2, c2)
	x.SetCol(3, c3)
	return x
}

func testTarget(x *mat.Dense) []float64 {
	// y = 2*c0 + 3*c1, exactly in the span of the first two columns
	y := make([]float64, 8)
	for i := range y {
		y[i] = 2*x.At(i, 0) + 3*x.At(i, 1)
	}
	return y
}

func TestNewEngineValidation(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	testData := map[string]struct {
		x   mat.Matrix
		y   []float64
		err error
	}{
		"nil design":   {nil, y, ErrNoDesignMatrix},
		"empty target": {x, nil, ErrNoTarget},
		"len mismatch": {x, y[:4], ErrTargetLenMismatch},
		"zero target":  {x, make([]float64, 8), ErrZeroTarget},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(td.x, td.y, nil)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestEngineScoreRange(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	eng, err := NewEngine(x, y, &Options{Workers: 1})
	require.Nil(t, err)

	scores, err := eng.ScoreCandidates(context.Background())
	require.Nil(t, err)
	require.Len(t, scores, 4)

	for _, sc := range scores {
		assert.False(t, sc.Singular)
		assert.GreaterOrEqual(t, sc.ERR, 0.0)
		assert.LessOrEqual(t, sc.ERR, 1.0)
	}
}

func TestEngineFullDecomposition(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	eng, err := NewEngine(x, y, &Options{Workers: 1})
	require.Nil(t, err)

	// greedily accept every non-singular candidate; the ERR steps decompose
	// the full target variance since y lies in the column span
	var cum float64
	prevNorm := eng.ResidualNorm()
	for {
		scores, err := eng.ScoreCandidates(context.Background())
		require.Nil(t, err)

		best := -1
		bestERR := -1.0
		for _, sc := range scores {
			if sc.Singular {
				continue
			}
			if sc.ERR > bestERR {
				best = sc.Index
				bestERR = sc.ERR
			}
		}
		if best < 0 {
			break
		}
		require.Nil(t, eng.Accept(best))
		cum += bestERR

		norm := eng.ResidualNorm()
		assert.LessOrEqual(t, norm, prevNorm+1e-12)
		prevNorm = norm
	}

	assert.InDelta(t, 1.0, cum, 1e-8)
	assert.InDelta(t, 1.0, eng.ExplainedVariance(), 1e-8)
}

func TestEngineRoundTrip(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	eng, err := NewEngine(x, y, &Options{Workers: 1})
	require.Nil(t, err)

	accepted := []int{2, 0, 1}
	for _, j := range accepted {
		require.Nil(t, eng.Accept(j))
	}

	col := make([]float64, 8)
	for k, j := range accepted {
		rebuilt, err := eng.ReconstructColumn(k)
		require.Nil(t, err)

		mat.Col(col, j, x)
		assert.InDeltaSlice(t, col, rebuilt, 1e-8, "column %d", j)
	}

	_, err = eng.ReconstructColumn(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestEngineCoefficients(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	eng, err := NewEngine(x, y, &Options{Workers: 1})
	require.Nil(t, err)

	// accept in swapped order; coefficients follow selection order
	require.Nil(t, eng.Accept(1))
	require.Nil(t, eng.Accept(0))

	theta := eng.Coefficients()
	require.Len(t, theta, 2)
	assert.InDelta(t, 3.0, theta[0], 1e-10)
	assert.InDelta(t, 2.0, theta[1], 1e-10)

	_, err = eng.CoefficientsAt(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestEngineSingularColumn(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	eng, err := NewEngine(x, y, &Options{Workers: 1})
	require.Nil(t, err)

	require.Nil(t, eng.Accept(0))
	require.Nil(t, eng.Accept(1))

	scores, err := eng.ScoreCandidates(context.Background())
	require.Nil(t, err)

	for _, sc := range scores {
		if sc.Index == 3 {
			// exact linear combination of the accepted columns
			assert.True(t, sc.Singular)
		}
	}

	err = eng.Accept(3)
	assert.ErrorIs(t, err, ErrSingularColumn)
	assert.ErrorIs(t, eng.Accept(0), ErrAlreadySelected)
}

func TestEngineParallelMatchesSequential(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	seq, err := NewEngine(x, y, &Options{Workers: 1})
	require.Nil(t, err)
	par, err := NewEngine(x, y, &Options{Workers: 4})
	require.Nil(t, err)

	require.Nil(t, seq.Accept(2))
	require.Nil(t, par.Accept(2))

	seqScores, err := seq.ScoreCandidates(context.Background())
	require.Nil(t, err)
	parScores, err := par.ScoreCandidates(context.Background())
	require.Nil(t, err)

	assert.Equal(t, seqScores, parScores)
}

func TestEngineScoreCancelled(t *testing.T) {
	x := testDesign()
	y := testTarget(x)

	eng, err := NewEngine(x, y, nil)
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = eng.ScoreCandidates(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
