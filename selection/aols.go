package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/gosysid/go-narmax/orthogonal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidSweepSize = errors.New("terms per sweep must be at least 1")
	ErrInvalidThreshold = errors.New("negative residual threshold")
)

const (
	DefaultAOLSTerms = 8
	DefaultAOLSSweep = 1
)

// AOLSOptions represents input options for accelerated orthogonal least
// squares selection.
type AOLSOptions struct {
	// NTerms is the number of terms to select.
	NTerms int

	// K is the number of terms accepted per sweep, ranked by residual
	// correlation.
	K int

	// Threshold stops selection early once the residual norm falls below
	// Threshold times the target norm. Zero disables the rule.
	Threshold float64

	// Engine configures the orthogonalization kernel.
	Engine *orthogonal.Options
}

// NewDefaultAOLSOptions returns a default set of AOLS options.
func NewDefaultAOLSOptions() *AOLSOptions {
	return &AOLSOptions{
		NTerms: DefaultAOLSTerms,
		K:      DefaultAOLSSweep,
		Engine: orthogonal.NewDefaultOptions(),
	}
}

// Validate runs basic validation on AOLS options, returning a normalized
// copy.
func (o *AOLSOptions) Validate() (*AOLSOptions, error) {
	if o == nil {
		return NewDefaultAOLSOptions(), nil
	}
	if o.NTerms < 0 {
		return nil, fmt.Errorf("got %d, %w", o.NTerms, ErrNegativeNTerms)
	}
	if o.K < 0 {
		return nil, fmt.Errorf("got %d, %w", o.K, ErrInvalidSweepSize)
	}
	if o.Threshold < 0 {
		return nil, fmt.Errorf("got %f, %w", o.Threshold, ErrInvalidThreshold)
	}

	opt := *o
	if opt.NTerms == 0 {
		opt.NTerms = DefaultAOLSTerms
	}
	if opt.K == 0 {
		opt.K = DefaultAOLSSweep
	}
	eng, err := opt.Engine.Validate()
	if err != nil {
		return nil, err
	}
	opt.Engine = eng
	return &opt, nil
}

// AOLS selects terms by residual correlation instead of exhaustive ERR
// scoring: each sweep ranks the unselected columns by the magnitude of their
// normalized correlation with the current residual and accepts the top K.
// Cheaper per step than FROLS at the cost of a weaker greedy guarantee.
type AOLS struct {
	opt *AOLSOptions
}

// NewAOLS initializes an AOLS selector ready to run.
func NewAOLS(opt *AOLSOptions) (*AOLS, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &AOLS{opt: opt}, nil
}

func (a *AOLS) Name() string {
	return "aols"
}

// Select runs accelerated orthogonal least squares over the design matrix
// columns against the target.
func (a *AOLS) Select(ctx context.Context, x mat.Matrix, y []float64) (*Result, error) {
	eng, err := orthogonal.NewEngine(x, y, a.opt.Engine)
	if err != nil {
		return nil, err
	}

	rows, cols := x.Dims()
	nTerms := a.opt.NTerms
	if nTerms > cols {
		nTerms = cols
	}

	yty := floats.Dot(y, y)
	yNorm := math.Sqrt(yty)

	res := &Result{State: StateSelecting}
	col := make([]float64, rows)
	prevResSq := yty

	for len(res.Picks) < nTerms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ranked := a.rankByCorrelation(eng, x, col)
		if len(ranked) == 0 {
			slog.Warn("aols selection aborted, no candidates correlate with the residual",
				"selected", len(res.Picks))
			res.State = StateAborted
			break
		}

		accepted := 0
		for _, j := range ranked {
			if accepted == a.opt.K || len(res.Picks) == nTerms {
				break
			}
			if err := eng.Accept(j); err != nil {
				if errors.Is(err, orthogonal.ErrSingularColumn) {
					slog.Debug("excluded singular candidate", "candidate", j)
					continue
				}
				return nil, err
			}

			rNorm := eng.ResidualNorm()
			resSq := rNorm * rNorm
			res.Picks = append(res.Picks, j)
			res.ERR = append(res.ERR, (prevResSq-resSq)/yty)
			res.ResidualNorms = append(res.ResidualNorms, rNorm)
			prevResSq = resSq
			accepted++
		}
		if accepted == 0 {
			slog.Warn("aols selection aborted, all remaining candidates are singular",
				"selected", len(res.Picks))
			res.State = StateAborted
			break
		}

		if a.opt.Threshold > 0 && eng.ResidualNorm() <= a.opt.Threshold*yNorm {
			res.State = StateConverged
			break
		}
	}

	if res.State == StateSelecting {
		if len(res.Picks) == nTerms && a.opt.Threshold == 0 {
			res.State = StateConverged
		} else {
			res.State = StateMaxTermsReached
		}
	}

	res.Coefficients = eng.Coefficients()
	res.ExplainedVariance = eng.ExplainedVariance()
	return res, nil
}

// rankByCorrelation orders the unselected columns by |x_j . r| / ||x_j||
// descending, dropping zero-norm columns. Ties resolve to the lowest
// candidate index.
func (a *AOLS) rankByCorrelation(eng *orthogonal.Engine, x mat.Matrix, col []float64) []int {
	residual := eng.Residual()
	selected := make(map[int]bool, len(eng.Selected()))
	for _, j := range eng.Selected() {
		selected[j] = true
	}

	_, cols := x.Dims()
	type corr struct {
		index int
		value float64
	}
	ranked := make([]corr, 0, cols-len(selected))
	for j := 0; j < cols; j++ {
		if selected[j] {
			continue
		}
		mat.Col(col, j, x)
		norm := floats.Norm(col, 2)
		if norm == 0 {
			continue
		}
		ranked = append(ranked, corr{index: j, value: math.Abs(floats.Dot(col, residual)) / norm})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].value > ranked[j].value
	})

	out := make([]int, len(ranked))
	for i, c := range ranked {
		out[i] = c.index
	}
	return out
}
