package basis

import (
	"math"

	"github.com/gosysid/go-narmax/regressor"
	"gonum.org/v1/gonum/mat"
)

// Polynomial is the standard NARX basis: each code expands to the product of
// its lagged values raised to the term exponents. The constant code expands
// to a column of ones.
type Polynomial struct{}

func NewPolynomial() *Polynomial {
	return &Polynomial{}
}

func (p *Polynomial) Expand(lagged mat.Matrix, layout regressor.Layout, code regressor.Code) ([]float64, error) {
	if lagged == nil {
		return nil, ErrNoLagged
	}
	rows, _ := lagged.Dims()

	col := make([]float64, rows)
	for i := range col {
		col[i] = 1.0
	}
	for _, term := range code.Terms() {
		src, err := layout.Column(term)
		if err != nil {
			return nil, err
		}
		for t := 0; t < rows; t++ {
			val := lagged.At(t, src)
			if term.Exponent == 1 {
				col[t] *= val
				continue
			}
			col[t] *= math.Pow(val, float64(term.Exponent))
		}
	}
	return col, nil
}

func (p *Polynomial) Name() string {
	return string(KindPolynomial)
}

func (p *Polynomial) Parameters() map[string]string {
	return map[string]string{}
}
