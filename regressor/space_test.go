package regressor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	testData := map[string]struct {
		cfg      *Config
		err      error
		expected *Config
	}{
		"nil": {nil, nil, NewDefaultConfig()},
		"valid": {
			&Config{MaxLagY: 3, MaxLagU: 1, Degree: 2, NumInputs: 1, NumOutputs: 1, Constant: true},
			nil,
			&Config{MaxLagY: 3, MaxLagU: 1, Degree: 2, NumInputs: 1, NumOutputs: 1, Constant: true},
		},
		"zero degree": {
			&Config{MaxLagY: 2, MaxLagU: 2, Degree: 0, NumInputs: 1},
			ErrInvalidDegree,
			nil,
		},
		"zero output lag": {
			&Config{MaxLagY: 0, MaxLagU: 2, Degree: 1, NumInputs: 1},
			ErrInvalidLag,
			nil,
		},
		"zero input lag with inputs": {
			&Config{MaxLagY: 2, MaxLagU: 0, Degree: 1, NumInputs: 1},
			ErrInvalidLag,
			nil,
		},
		"negative inputs": {
			&Config{MaxLagY: 2, MaxLagU: 2, Degree: 1, NumInputs: -1},
			ErrInvalidInputs,
			nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg, err := td.cfg.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, cfg)
		})
	}
}

func TestNewSpaceBaseCase(t *testing.T) {
	// degree 1, max lag 1, single input: exactly {1, y(k-1), u(k-1)}
	space, err := NewSpace(&Config{
		MaxLagY:   1,
		MaxLagU:   1,
		Degree:    1,
		NumInputs: 1,
		Constant:  true,
	})
	require.Nil(t, err)

	expected := []Code{
		NewCode(),
		NewCode(Term{Variable: 1, Lag: 1, Exponent: 1}),
		NewCode(Term{Variable: 2, Lag: 1, Exponent: 1}),
	}
	assert.Equal(t, expected, space.Codes())

	layout := space.Layout()
	assert.Equal(t, "1", layout.Format(space.Code(0)))
	assert.Equal(t, "y(k-1)", layout.Format(space.Code(1)))
	assert.Equal(t, "u(k-1)", layout.Format(space.Code(2)))
}

func TestSpaceCountBound(t *testing.T) {
	testData := map[string]*Config{
		"lag 1 degree 1": {MaxLagY: 1, MaxLagU: 1, Degree: 1, NumInputs: 1, Constant: true},
		"lag 2 degree 2": {MaxLagY: 2, MaxLagU: 2, Degree: 2, NumInputs: 1, Constant: true},
		"lag 3 degree 3": {MaxLagY: 3, MaxLagU: 3, Degree: 3, NumInputs: 1, Constant: true},
		"no constant":    {MaxLagY: 2, MaxLagU: 2, Degree: 2, NumInputs: 1, Constant: false},
		"two inputs":     {MaxLagY: 2, MaxLagU: 3, Degree: 2, NumInputs: 2, Constant: true},
		"autonomous":     {MaxLagY: 4, Degree: 2, NumInputs: 0, Constant: true},
	}

	for name, cfg := range testData {
		t.Run(name, func(t *testing.T) {
			space, err := NewSpace(cfg)
			require.Nil(t, err)

			bound, err := CountBound(cfg)
			require.Nil(t, err)
			assert.Equal(t, bound, space.Len())
		})
	}

	// spot check the closed form: V=4, degree 2 gives C(6,2)=15 with constant
	space, err := NewSpace(&Config{MaxLagY: 2, MaxLagU: 2, Degree: 2, NumInputs: 1, Constant: true})
	require.Nil(t, err)
	assert.Equal(t, 15, space.Len())
}

func TestSpaceNoDuplicates(t *testing.T) {
	space, err := NewSpace(&Config{MaxLagY: 3, MaxLagU: 2, Degree: 3, NumInputs: 1, Constant: true})
	require.Nil(t, err)

	codes := space.Codes()
	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			assert.False(t, codes[i].Equal(codes[j]), "codes %d and %d are duplicates: %s", i, j, codes[i])
		}
	}
}

func TestSpaceDeterministicOrder(t *testing.T) {
	cfg := &Config{MaxLagY: 2, MaxLagU: 2, Degree: 3, NumInputs: 2, Constant: true}

	a, err := NewSpace(cfg)
	require.Nil(t, err)
	b, err := NewSpace(cfg)
	require.Nil(t, err)

	assert.Equal(t, a.Codes(), b.Codes())

	// codes never decrease in degree along the enumeration
	codes := a.Codes()
	for i := 1; i < len(codes); i++ {
		assert.LessOrEqual(t, codes[i-1].Degree(), codes[i].Degree())
	}
}

func TestNewCodeFolding(t *testing.T) {
	// y(k-1)*y(k-1) and y(k-1)^2 are the same term
	squared := NewCode(
		Term{Variable: 1, Lag: 1, Exponent: 1},
		Term{Variable: 1, Lag: 1, Exponent: 1},
	)
	direct := NewCode(Term{Variable: 1, Lag: 1, Exponent: 2})
	assert.True(t, squared.Equal(direct))
	assert.Equal(t, 2, squared.Degree())

	// generation order of factors does not matter
	ab := NewCode(
		Term{Variable: 1, Lag: 1, Exponent: 1},
		Term{Variable: 2, Lag: 2, Exponent: 1},
	)
	ba := NewCode(
		Term{Variable: 2, Lag: 2, Exponent: 1},
		Term{Variable: 1, Lag: 1, Exponent: 1},
	)
	assert.True(t, ab.Equal(ba))
}

func TestLayoutColumn(t *testing.T) {
	layout := Layout{MaxLagY: 2, MaxLagU: 3, NumOutputs: 1, NumInputs: 2}
	require.Equal(t, 8, layout.NumColumns())

	testData := map[string]struct {
		term Term
		col  int
		err  error
	}{
		"y lag 1":          {Term{Variable: 1, Lag: 1, Exponent: 1}, 0, nil},
		"y lag 2":          {Term{Variable: 1, Lag: 2, Exponent: 1}, 1, nil},
		"u1 lag 1":         {Term{Variable: 2, Lag: 1, Exponent: 1}, 2, nil},
		"u1 lag 3":         {Term{Variable: 2, Lag: 3, Exponent: 1}, 4, nil},
		"u2 lag 2":         {Term{Variable: 3, Lag: 2, Exponent: 1}, 6, nil},
		"y lag too big":    {Term{Variable: 1, Lag: 3, Exponent: 1}, 0, ErrLagOutOfRange},
		"unknown variable": {Term{Variable: 4, Lag: 1, Exponent: 1}, 0, ErrUnknownVariable},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			col, err := layout.Column(td.term)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.col, col)
		})
	}
}

func TestLaggedMatrix(t *testing.T) {
	space, err := NewSpace(&Config{MaxLagY: 2, MaxLagU: 2, Degree: 1, NumInputs: 1, Constant: false})
	require.Nil(t, err)

	y := []float64{1, 2, 3, 4}
	u := []float64{10, 20, 30, 40}

	lagged, err := space.LaggedMatrix([][]float64{y}, [][]float64{u})
	require.Nil(t, err)

	rows, cols := lagged.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 4, cols)

	// row 0 observes time step 2: y(k-1)=2, y(k-2)=1, u(k-1)=20, u(k-2)=10
	assert.Equal(t, []float64{2, 1, 20, 10}, lagged.RawRowView(0))
	assert.Equal(t, []float64{3, 2, 30, 20}, lagged.RawRowView(1))

	assert.Equal(t, []float64{3, 4}, space.TrimTarget(y))
}

func TestLaggedMatrixErrors(t *testing.T) {
	space, err := NewSpace(&Config{MaxLagY: 2, MaxLagU: 2, Degree: 1, NumInputs: 1, Constant: false})
	require.Nil(t, err)

	testData := map[string]struct {
		y   [][]float64
		u   [][]float64
		err error
	}{
		"wrong input channels": {
			[][]float64{{1, 2, 3}},
			nil,
			ErrChannelCount,
		},
		"length mismatch": {
			[][]float64{{1, 2, 3, 4}},
			[][]float64{{1, 2, 3}},
			ErrSeriesLenMismatch,
		},
		"too short": {
			[][]float64{{1, 2}},
			[][]float64{{1, 2}},
			ErrInsufficientSamples,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := space.LaggedMatrix(td.y, td.u)
			assert.ErrorIs(t, err, td.err)
		})
	}
}
