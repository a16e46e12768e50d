package narmax

import (
	"errors"
	"fmt"

	"github.com/gosysid/go-narmax/basis"
	"github.com/gosysid/go-narmax/estimators"
	"github.com/gosysid/go-narmax/regressor"
	"github.com/gosysid/go-narmax/selection"
)

var ErrUnknownSelector = errors.New("unknown selector kind")

// SelectorKind names a structure selection strategy.
type SelectorKind string

const (
	SelectorFROLS   SelectorKind = "frols"
	SelectorAOLS    SelectorKind = "aols"
	SelectorMetaMSS SelectorKind = "metamss"
)

// Options configures a full identification run. Sub-options are passed by
// value into each pipeline stage; stages never share mutable configuration.
type Options struct {
	// Space bounds the candidate regressor space. Its NumInputs and
	// NumOutputs are derived from the data handed to Fit.
	Space *regressor.Config `json:"space"`

	// Basis selects the regressor expansion.
	Basis basis.Kind `json:"basis"`

	// Fourier configures the fourier basis when selected.
	Fourier *basis.FourierOptions `json:"fourier,omitempty"`

	// Selector picks the structure selection strategy.
	Selector SelectorKind `json:"selector"`

	FROLS   *selection.FROLSOptions   `json:"frols,omitempty"`
	AOLS    *selection.AOLSOptions    `json:"aols,omitempty"`
	MetaMSS *selection.MetaMSSOptions `json:"metamss,omitempty"`

	// Estimator picks the coefficient estimation method applied to the
	// selected structure. Least squares reuses the orthogonal-domain solve
	// from selection instead of re-solving the submatrix.
	Estimator estimators.Method `json:"estimator"`

	LeastSquares          *estimators.LeastSquaresOptions          `json:"least_squares,omitempty"`
	Ridge                 *estimators.RidgeOptions                 `json:"ridge,omitempty"`
	TotalLeastSquares     *estimators.TotalLeastSquaresOptions     `json:"total_least_squares,omitempty"`
	RecursiveLeastSquares *estimators.RecursiveLeastSquaresOptions `json:"recursive_least_squares,omitempty"`
	ExtendedLeastSquares  *estimators.ExtendedLeastSquaresOptions  `json:"extended_least_squares,omitempty"`

	// ComputeStandardErrors fits an auxiliary least squares pass on the
	// selected submatrix to expose per-coefficient standard errors.
	ComputeStandardErrors bool `json:"compute_standard_errors"`
}

// NewDefaultOptions returns a default identification setup: polynomial
// basis, FROLS selection stopping on the AIC minimum, and the
// orthogonal-domain least squares solve.
func NewDefaultOptions() *Options {
	return &Options{
		Space:     regressor.NewDefaultConfig(),
		Basis:     basis.KindPolynomial,
		Selector:  SelectorFROLS,
		FROLS:     selection.NewDefaultFROLSOptions(),
		Estimator: estimators.MethodLeastSquares,
	}
}

// Validate runs basic validation on identification options, returning a
// normalized copy.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	opt := *o

	if opt.Space == nil {
		opt.Space = regressor.NewDefaultConfig()
	}
	if opt.Basis == "" {
		opt.Basis = basis.KindPolynomial
	}
	if opt.Selector == "" {
		opt.Selector = SelectorFROLS
	}
	if opt.Estimator == "" {
		opt.Estimator = estimators.MethodLeastSquares
	}

	switch opt.Selector {
	case SelectorFROLS:
		frols, err := opt.FROLS.Validate()
		if err != nil {
			return nil, err
		}
		opt.FROLS = frols
	case SelectorAOLS:
		aols, err := opt.AOLS.Validate()
		if err != nil {
			return nil, err
		}
		opt.AOLS = aols
	case SelectorMetaMSS:
		meta, err := opt.MetaMSS.Validate()
		if err != nil {
			return nil, err
		}
		opt.MetaMSS = meta
	default:
		return nil, fmt.Errorf("got %q, %w", opt.Selector, ErrUnknownSelector)
	}

	if opt.Basis == basis.KindFourier {
		fourier, err := opt.Fourier.Validate()
		if err != nil {
			return nil, err
		}
		opt.Fourier = fourier
	}

	if _, err := estimators.New(opt.Estimator); err != nil {
		return nil, err
	}
	return &opt, nil
}

func (o *Options) newBasis() (basis.Basis, error) {
	if o.Basis == basis.KindFourier {
		return basis.NewFourier(o.Fourier)
	}
	return basis.New(o.Basis)
}

func (o *Options) newSelector() (selection.Selector, error) {
	switch o.Selector {
	case SelectorFROLS:
		return selection.NewFROLS(o.FROLS)
	case SelectorAOLS:
		return selection.NewAOLS(o.AOLS)
	case SelectorMetaMSS:
		return selection.NewMetaMSS(o.MetaMSS)
	}
	return nil, fmt.Errorf("got %q, %w", o.Selector, ErrUnknownSelector)
}

func (o *Options) newEstimator() (estimators.Estimator, error) {
	switch o.Estimator {
	case estimators.MethodLeastSquares, "":
		return estimators.NewLeastSquares(o.LeastSquares)
	case estimators.MethodRidge:
		return estimators.NewRidge(o.Ridge)
	case estimators.MethodTotalLeastSquares:
		return estimators.NewTotalLeastSquares(o.TotalLeastSquares)
	case estimators.MethodRecursiveLeastSquares:
		return estimators.NewRecursiveLeastSquares(o.RecursiveLeastSquares)
	case estimators.MethodExtendedLeastSquares:
		return estimators.NewExtendedLeastSquares(o.ExtendedLeastSquares)
	}
	return nil, fmt.Errorf("got %q, %w", o.Estimator, estimators.ErrUnknownMethod)
}
