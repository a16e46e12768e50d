package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/gosysid/go-narmax/orthogonal"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNegativeNTerms = errors.New("negative term count")
	ErrInvalidErrTol  = errors.New("cumulative ERR threshold must be in (0, 1]")
)

// FROLSOptions represents input options for the forward regression
// orthogonal least squares selector. Exactly one stopping rule applies; when
// several are set the precedence is NTerms, then ErrTol, then Criterion.
type FROLSOptions struct {
	// NTerms stops selection after a fixed number of accepted terms. Zero
	// disables the rule.
	NTerms int

	// ErrTol stops selection once the cumulative ERR of the accepted terms
	// reaches the threshold, e.g. 1 - 1e-3. Zero disables the rule.
	ErrTol float64

	// Criterion stops selection one step after the information criterion
	// stops improving (one-step lookahead, not a global search). Empty
	// disables the rule unless no other rule is set, in which case AIC is
	// used.
	Criterion Criterion

	// MaxTerms caps the number of accepted terms regardless of the stopping
	// rule. Zero means no cap beyond the candidate count.
	MaxTerms int

	// Engine configures the orthogonalization kernel.
	Engine *orthogonal.Options
}

// NewDefaultFROLSOptions returns a default set of FROLS options stopping on
// the AIC minimum.
func NewDefaultFROLSOptions() *FROLSOptions {
	return &FROLSOptions{
		Criterion: CriterionAIC,
		Engine:    orthogonal.NewDefaultOptions(),
	}
}

// Validate runs basic validation on FROLS options, returning a normalized
// copy.
func (o *FROLSOptions) Validate() (*FROLSOptions, error) {
	if o == nil {
		return NewDefaultFROLSOptions(), nil
	}
	if o.NTerms < 0 {
		return nil, fmt.Errorf("got %d, %w", o.NTerms, ErrNegativeNTerms)
	}
	if o.ErrTol < 0 || o.ErrTol > 1 {
		return nil, fmt.Errorf("got %f, %w", o.ErrTol, ErrInvalidErrTol)
	}
	if err := o.Criterion.Validate(); err != nil {
		return nil, err
	}
	if o.MaxTerms < 0 {
		return nil, fmt.Errorf("got max terms %d, %w", o.MaxTerms, ErrNegativeNTerms)
	}

	opt := *o
	if opt.NTerms == 0 && opt.ErrTol == 0 && opt.Criterion == "" {
		opt.Criterion = CriterionAIC
	}
	eng, err := opt.Engine.Validate()
	if err != nil {
		return nil, err
	}
	opt.Engine = eng
	return &opt, nil
}

// FROLS is the forward regression orthogonal least squares selector: a
// greedy state machine accepting the highest-ERR candidate each step until a
// stopping rule fires.
type FROLS struct {
	opt *FROLSOptions
}

// NewFROLS initializes a FROLS selector ready to run.
func NewFROLS(opt *FROLSOptions) (*FROLS, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &FROLS{opt: opt}, nil
}

func (f *FROLS) Name() string {
	return "frols"
}

// Select runs greedy forward selection over the design matrix columns
// against the target. The context is checked between steps so long searches
// can be aborted by the caller.
func (f *FROLS) Select(ctx context.Context, x mat.Matrix, y []float64) (*Result, error) {
	eng, err := orthogonal.NewEngine(x, y, f.opt.Engine)
	if err != nil {
		return nil, err
	}

	rows, cols := x.Dims()
	maxTerms := cols
	if f.opt.MaxTerms > 0 && f.opt.MaxTerms < cols {
		maxTerms = f.opt.MaxTerms
	}

	res := &Result{State: StateSelecting}
	var cumERR float64
	prevInfo := math.Inf(1)

	for len(res.Picks) < maxTerms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scores, err := eng.ScoreCandidates(ctx)
		if err != nil {
			return nil, err
		}

		best, bestERR, singular := pickBest(scores)
		if best < 0 {
			// every remaining candidate is linearly dependent on the
			// accepted basis
			slog.Warn("forward selection aborted, all remaining candidates are singular",
				"selected", len(res.Picks),
				"remaining", len(scores))
			res.State = StateAborted
			break
		}
		if singular > 0 {
			slog.Debug("excluded singular candidates from ERR ranking",
				"count", singular,
				"step", len(res.Picks)+1)
		}

		if err := eng.Accept(best); err != nil {
			return nil, err
		}
		res.Picks = append(res.Picks, best)
		res.ERR = append(res.ERR, bestERR)
		res.ResidualNorms = append(res.ResidualNorms, eng.ResidualNorm())
		cumERR += bestERR
		k := len(res.Picks)

		switch {
		case f.opt.NTerms > 0:
			if k >= f.opt.NTerms {
				res.State = StateConverged
			}
		case f.opt.ErrTol > 0:
			if cumERR >= f.opt.ErrTol {
				res.State = StateConverged
			}
		default:
			eVar := stat.Variance(eng.Residual(), nil)
			info, err := f.opt.Criterion.Value(k, rows, eVar)
			if err != nil {
				return nil, err
			}
			res.InfoValues = append(res.InfoValues, info)
			if info > prevInfo {
				// the criterion got worse: the previous size was the
				// minimum, so the lookahead term is discarded
				res.Picks = res.Picks[:k-1]
				res.ERR = res.ERR[:k-1]
				res.ResidualNorms = res.ResidualNorms[:k-1]
				cumERR -= bestERR
				res.State = StateConverged
			}
			prevInfo = info
		}
		if res.State != StateSelecting {
			break
		}
	}

	if res.State == StateSelecting {
		res.State = StateMaxTermsReached
	}

	res.Coefficients, err = eng.CoefficientsAt(len(res.Picks))
	if err != nil {
		return nil, err
	}
	res.ExplainedVariance = cumERR
	return res, nil
}

// pickBest returns the non-singular candidate with the highest ERR. Scores
// are ordered by candidate index and the comparison is strict, so equal ERR
// values resolve to the lowest index.
func pickBest(scores []orthogonal.Score) (best int, bestERR float64, singular int) {
	best = -1
	bestERR = math.Inf(-1)
	for _, sc := range scores {
		if sc.Singular {
			singular++
			continue
		}
		if sc.ERR > bestERR {
			best = sc.Index
			bestERR = sc.ERR
		}
	}
	return best, bestERR, singular
}
