package regressor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrSeriesLenMismatch   = errors.New("all series must have the same length")
	ErrInsufficientSamples = errors.New("series shorter than max lag leaves no usable rows")
	ErrChannelCount        = errors.New("series channel count does not match config")
)

// LaggedMatrix builds the lagged-variable matrix for the space from raw
// series. y holds one slice per output channel and u one per input channel.
// The first MaxLag rows of the horizon are dropped since lagged values are
// undefined there; the result has len-MaxLag rows, aligned with
// TrimTarget(y[ch]).
func (s *Space) LaggedMatrix(y, u [][]float64) (*mat.Dense, error) {
	if len(y) != s.cfg.NumOutputs {
		return nil, fmt.Errorf("got %d output channels, expected %d, %w", len(y), s.cfg.NumOutputs, ErrChannelCount)
	}
	if len(u) != s.cfg.NumInputs {
		return nil, fmt.Errorf("got %d input channels, expected %d, %w", len(u), s.cfg.NumInputs, ErrChannelCount)
	}

	n := len(y[0])
	for ch, series := range y {
		if len(series) != n {
			return nil, fmt.Errorf("output channel %d has length %d, expected %d, %w", ch, len(series), n, ErrSeriesLenMismatch)
		}
	}
	for ch, series := range u {
		if len(series) != n {
			return nil, fmt.Errorf("input channel %d has length %d, expected %d, %w", ch, len(series), n, ErrSeriesLenMismatch)
		}
	}

	maxLag := s.cfg.MaxLag()
	rows := n - maxLag
	if rows < 1 {
		return nil, fmt.Errorf("%d samples with max lag %d, %w", n, maxLag, ErrInsufficientSamples)
	}

	layout := s.Layout()
	lagged := mat.NewDense(rows, layout.NumColumns(), nil)

	col := 0
	for ch := 0; ch < s.cfg.NumOutputs; ch++ {
		for lag := 1; lag <= s.cfg.MaxLagY; lag++ {
			for t := 0; t < rows; t++ {
				lagged.Set(t, col, y[ch][t+maxLag-lag])
			}
			col++
		}
	}
	for ch := 0; ch < s.cfg.NumInputs; ch++ {
		for lag := 1; lag <= s.cfg.MaxLagU; lag++ {
			for t := 0; t < rows; t++ {
				lagged.Set(t, col, u[ch][t+maxLag-lag])
			}
			col++
		}
	}
	return lagged, nil
}

// TrimTarget drops the leading MaxLag samples of a target series so it lines
// up row-for-row with LaggedMatrix output.
func (s *Space) TrimTarget(y []float64) []float64 {
	maxLag := s.cfg.MaxLag()
	if len(y) <= maxLag {
		return nil
	}
	trimmed := make([]float64, len(y)-maxLag)
	copy(trimmed, y[maxLag:])
	return trimmed
}
