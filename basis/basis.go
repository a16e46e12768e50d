// Package basis maps encoded regressors onto design-matrix columns. The
// known basis kinds are enumerated here; each expands one regressor code
// into a column of transformed lagged data.
package basis

import (
	"errors"
	"fmt"

	"github.com/gosysid/go-narmax/regressor"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnknownKind = errors.New("unknown basis kind")
	ErrNoLagged    = errors.New("no lagged matrix")
)

type Kind string

const (
	KindPolynomial Kind = "polynomial"
	KindFourier    Kind = "fourier"
)

// Basis expands a regressor code into one design-matrix column. Rows before
// the max lag must be trimmed upstream; a basis never pads undefined lagged
// values.
type Basis interface {
	Expand(lagged mat.Matrix, layout regressor.Layout, code regressor.Code) ([]float64, error)
	Name() string
	Parameters() map[string]string
}

// New returns the basis for a kind with default parameters.
func New(kind Kind) (Basis, error) {
	switch kind {
	case KindPolynomial, "":
		return NewPolynomial(), nil
	case KindFourier:
		return NewFourier(nil)
	}
	return nil, fmt.Errorf("got %q, %w", kind, ErrUnknownKind)
}

// BuildDesignMatrix expands every code into a column, aligned with the code
// order. The result has one row per lagged-matrix row.
func BuildDesignMatrix(b Basis, lagged mat.Matrix, layout regressor.Layout, codes []regressor.Code) (*mat.Dense, error) {
	if lagged == nil {
		return nil, ErrNoLagged
	}
	rows, _ := lagged.Dims()
	design := mat.NewDense(rows, len(codes), nil)
	for j, code := range codes {
		col, err := b.Expand(lagged, layout, code)
		if err != nil {
			return nil, fmt.Errorf("expanding candidate %d (%s): %w", j, layout.Format(code), err)
		}
		design.SetCol(j, col)
	}
	return design, nil
}
