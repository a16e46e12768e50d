// Package dataset validates the aligned numeric series a NARX
// identification consumes and generates synthetic series for tests and
// examples.
package dataset

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptySeries       = errors.New("series has no samples")
	ErrSeriesLenMismatch = errors.New("input series has different length than target")
	ErrNonFiniteSample   = errors.New("series contains a NaN or infinite sample")
)

// Validate checks that the target and every input channel have equal length
// and contain only finite values.
func Validate(y []float64, u ...[]float64) error {
	if len(y) == 0 {
		return ErrEmptySeries
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("target sample %d, %w", i, ErrNonFiniteSample)
		}
	}
	for ch, series := range u {
		if len(series) != len(y) {
			return fmt.Errorf("input %d has length %d, target has %d, %w", ch, len(series), len(y), ErrSeriesLenMismatch)
		}
		for i, v := range series {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("input %d sample %d, %w", ch, i, ErrNonFiniteSample)
			}
		}
	}
	return nil
}
