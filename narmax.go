// Package narmax identifies polynomial NARX/NARMAX models from input-output
// time series: it enumerates a candidate regressor space, selects a
// parsimonious structure by forward regression orthogonal least squares (or
// an auxiliary strategy), and estimates the coefficients of the selected
// terms.
package narmax

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gosysid/go-narmax/basis"
	"github.com/gosysid/go-narmax/dataset"
	"github.com/gosysid/go-narmax/estimators"
	matutil "github.com/gosysid/go-narmax/mat"
	"github.com/gosysid/go-narmax/regressor"
	"github.com/gosysid/go-narmax/selection"
	"github.com/gosysid/go-narmax/stats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUninitializedIdentifier = errors.New("uninitialized identifier")
	ErrUntrainedIdentifier     = errors.New("identifier has not been trained yet")
	ErrNoSelectedTerms         = errors.New("selection accepted no terms")
)

// Identifier fits a NARX model structure and coefficients from training
// series. A fitted identifier holds the resulting Model.
type Identifier struct {
	opt *Options

	model   *Model
	trained bool
}

// New creates an identifier with the given options. If none are provided, a
// default is used.
func New(opt *Options) (*Identifier, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Identifier{opt: opt}, nil
}

// Fit identifies a model of the target series y driven by the optional
// input channels u. The context is threaded through the selection loop so
// long structure searches can be aborted between steps.
//
// When an iterative stage stops on its iteration budget the best available
// model is still returned along with the wrapped non-convergence error.
func (id *Identifier) Fit(ctx context.Context, y []float64, u ...[]float64) (*Model, error) {
	if id == nil {
		return nil, ErrUninitializedIdentifier
	}
	if err := dataset.Validate(y, u...); err != nil {
		return nil, err
	}

	cfg := *id.opt.Space
	cfg.NumInputs = len(u)
	cfg.NumOutputs = 1
	space, err := regressor.NewSpace(&cfg)
	if err != nil {
		return nil, err
	}

	lagged, err := space.LaggedMatrix([][]float64{y}, u)
	if err != nil {
		return nil, err
	}
	target := space.TrimTarget(y)

	b, err := id.opt.newBasis()
	if err != nil {
		return nil, err
	}
	design, err := basis.BuildDesignMatrix(b, lagged, space.Layout(), space.Codes())
	if err != nil {
		return nil, err
	}

	sel, err := id.opt.newSelector()
	if err != nil {
		return nil, err
	}

	res, err := sel.Select(ctx, design, target)
	var deferred error
	if err != nil {
		var nce *selection.NonConvergenceError
		if !errors.As(err, &nce) || nce.Best == nil {
			return nil, err
		}
		// keep the best structure found and surface the error after the
		// model is assembled
		res = nce.Best
		deferred = err
		slog.Warn("structure search did not converge, keeping best structure found",
			"selector", sel.Name(),
			"terms", len(res.Picks))
	}
	if len(res.Picks) == 0 {
		return nil, ErrNoSelectedTerms
	}

	coef, stderr, estErr := id.estimate(design, target, res)
	if estErr != nil {
		if !errors.Is(estErr, estimators.ErrNonConvergence) {
			return nil, estErr
		}
		if deferred == nil {
			deferred = estErr
		}
	}

	model := id.buildModel(space, b, res, coef, stderr, len(target))
	id.model = model
	id.trained = true
	return model, deferred
}

// estimate resolves final coefficients for the selected structure. Plain
// least squares reuses the orthogonal-domain solve computed during
// selection; every other method fits the selected submatrix directly.
func (id *Identifier) estimate(design mat.Matrix, target []float64, res *selection.Result) (coef, stderr []float64, err error) {
	needsFit := id.opt.Estimator != estimators.MethodLeastSquares || id.opt.ComputeStandardErrors

	coef = res.Coefficients
	if !needsFit {
		return coef, nil, nil
	}

	sub, err := matutil.SelectColumns(design, res.Picks)
	if err != nil {
		return nil, nil, err
	}
	yMx := mat.NewDense(len(target), 1, append([]float64(nil), target...))

	est, err := id.opt.newEstimator()
	if err != nil {
		return nil, nil, err
	}

	if fitErr := est.Fit(sub, yMx); fitErr != nil {
		switch {
		case errors.Is(fitErr, estimators.ErrNonConvergence):
			return est.Coef(), stderrOf(est), fitErr
		case errors.Is(fitErr, estimators.ErrIllConditioned) && id.opt.Estimator == estimators.MethodLeastSquares:
			// the orthogonal-domain solve is the recommended fallback and
			// is already in hand; only the standard errors are lost
			slog.Warn("selected submatrix is ill conditioned, keeping orthogonal-domain coefficients", "error", fitErr.Error())
			return coef, nil, nil
		default:
			return nil, nil, fitErr
		}
	}

	if id.opt.Estimator != estimators.MethodLeastSquares {
		coef = est.Coef()
	}
	return coef, stderrOf(est), nil
}

func stderrOf(est estimators.Estimator) []float64 {
	se, ok := est.(estimators.StandardErrorer)
	if !ok {
		return nil
	}
	return se.StandardErrors()
}

func (id *Identifier) buildModel(space *regressor.Space, b basis.Basis, res *selection.Result, coef, stderr []float64, nSamples int) *Model {
	layout := space.Layout()

	terms := make([]TermWeight, len(res.Picks))
	for i, pick := range res.Picks {
		code := space.Code(pick)
		tw := TermWeight{
			Code:        code,
			Label:       layout.Format(code),
			Coefficient: coef[i],
			ERR:         res.ERR[i],
		}
		if stderr != nil {
			tw.StandardError = stderr[i]
		}
		terms[i] = tw
	}

	var residualVariance float64
	if n := len(res.ResidualNorms); n > 0 {
		last := res.ResidualNorms[n-1]
		residualVariance = last * last / float64(nSamples-1)
	}

	params := b.Parameters()
	if len(params) == 0 {
		params = nil
	}

	return &Model{
		Options:           id.opt,
		Basis:             b.Name(),
		BasisParams:       params,
		SpaceConfig:       space.Config(),
		Terms:             terms,
		SelectionState:    res.State.String(),
		ResidualNorms:     res.ResidualNorms,
		InfoValues:        res.InfoValues,
		ExplainedVariance: res.ExplainedVariance,
		ResidualVariance:  residualVariance,
	}
}

// Model returns the trained model.
func (id *Identifier) Model() (*Model, error) {
	if id == nil {
		return nil, ErrUninitializedIdentifier
	}
	if !id.trained {
		return nil, ErrUntrainedIdentifier
	}
	return id.model, nil
}

// Diagnostics computes collinearity diagnostics of the selected structure
// against the training design. Provided for validation tooling; requires at
// least two selected terms.
func Diagnostics(design mat.Matrix, picks []int) ([]float64, error) {
	sub, err := matutil.SelectColumns(design, picks)
	if err != nil {
		return nil, err
	}
	return stats.VarianceInflationFactors(sub)
}
