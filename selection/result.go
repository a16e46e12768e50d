package selection

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// State is the terminal (or in-flight) state of a structure selection run.
type State int

const (
	StateInitial State = iota
	StateSelecting
	StateConverged
	StateMaxTermsReached
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateSelecting:
		return "selecting"
	case StateConverged:
		return "converged"
	case StateMaxTermsReached:
		return "max_terms_reached"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Result is the outcome of a structure selection run. Picks are design
// matrix column indices in selection order, which doubles as the
// significance ranking of the accepted terms.
type Result struct {
	// Picks are the selected candidate indices, most significant first.
	Picks []int

	// ERR holds the error reduction ratio captured at each selection step,
	// aligned with Picks.
	ERR []float64

	// ResidualNorms traces the residual Euclidean norm after each accepted
	// term. It is non-increasing.
	ResidualNorms []float64

	// InfoValues traces the information criterion after each accepted term
	// when criterion-based stopping is active. It may be one entry longer
	// than Picks: the lookahead value that triggered the stop is retained.
	InfoValues []float64

	// Coefficients are the regressor-domain coefficients of the picks,
	// recovered through the orthogonal transformation.
	Coefficients []float64

	// ExplainedVariance is the cumulative ERR of the picks.
	ExplainedVariance float64

	// State records how the run terminated.
	State State
}

// Selector is a structure selection strategy over a design matrix and an
// aligned target vector.
type Selector interface {
	Select(ctx context.Context, x mat.Matrix, y []float64) (*Result, error)
	Name() string
}
