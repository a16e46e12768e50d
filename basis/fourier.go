package basis

import (
	"errors"
	"fmt"
	"math"

	"github.com/gosysid/go-narmax/regressor"
	"gonum.org/v1/gonum/mat"
)

var ErrUnknownComponent = errors.New("unknown fourier component")

type FourierComp string

const (
	FourierCompSin FourierComp = "sin"
	FourierCompCos FourierComp = "cos"
)

// FourierOptions represents input options for the Fourier basis.
type FourierOptions struct {
	// Component selects the sine or cosine expansion.
	Component FourierComp
}

// NewDefaultFourierOptions returns a default set of Fourier basis options.
func NewDefaultFourierOptions() *FourierOptions {
	return &FourierOptions{
		Component: FourierCompCos,
	}
}

// Validate runs basic validation on Fourier basis options.
func (o *FourierOptions) Validate() (*FourierOptions, error) {
	if o == nil {
		return NewDefaultFourierOptions(), nil
	}
	switch o.Component {
	case FourierCompSin, FourierCompCos:
	case "":
		opt := *o
		opt.Component = FourierCompCos
		return &opt, nil
	default:
		return nil, fmt.Errorf("got %q, %w", o.Component, ErrUnknownComponent)
	}
	opt := *o
	return &opt, nil
}

// Fourier expands a code into a product of trigonometric transforms of its
// lagged values, with each term's exponent acting as the harmonic order:
// cos(pi*e*x) or sin(pi*e*x) per factor.
type Fourier struct {
	opt *FourierOptions
}

func NewFourier(opt *FourierOptions) (*Fourier, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Fourier{opt: opt}, nil
}

func (f *Fourier) Expand(lagged mat.Matrix, layout regressor.Layout, code regressor.Code) ([]float64, error) {
	if lagged == nil {
		return nil, ErrNoLagged
	}
	rows, _ := lagged.Dims()

	transform := math.Cos
	if f.opt.Component == FourierCompSin {
		transform = math.Sin
	}

	col := make([]float64, rows)
	for i := range col {
		col[i] = 1.0
	}
	for _, term := range code.Terms() {
		src, err := layout.Column(term)
		if err != nil {
			return nil, err
		}
		order := float64(term.Exponent)
		for t := 0; t < rows; t++ {
			col[t] *= transform(math.Pi * order * lagged.At(t, src))
		}
	}
	return col, nil
}

func (f *Fourier) Name() string {
	return string(KindFourier)
}

func (f *Fourier) Parameters() map[string]string {
	return map[string]string{
		"component": string(f.opt.Component),
	}
}
