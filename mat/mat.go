// Package mat holds small dense-matrix construction helpers shared by the
// identification pipeline and its tests.
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch    = errors.New("column size mismatch")
	ErrColOutOfBounds = errors.New("column is out of bounds")
)

// NewDenseFromArray builds a dense matrix from row-major 2D slices.
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if n < 0 {
		n = 0
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// SelectColumns builds a new dense matrix from the given columns of x, in
// the given order. Used to extract the selected regressor submatrix from
// the full design matrix.
func SelectColumns(x mat.Matrix, cols []int) (*mat.Dense, error) {
	rows, n := x.Dims()
	sub := mat.NewDense(rows, len(cols), nil)
	buf := make([]float64, rows)
	for i, j := range cols {
		if j < 0 || j >= n {
			return nil, fmt.Errorf("column %d of %d, %w", j, n, ErrColOutOfBounds)
		}
		mat.Col(buf, j, x)
		sub.SetCol(i, buf)
	}
	return sub, nil
}
