// Package orthogonal implements the numerical kernel of forward regression:
// successive orthogonalization of candidate design-matrix columns against an
// accepted basis, and the Error Reduction Ratio of each remaining candidate.
package orthogonal

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrSingularColumn    = errors.New("candidate column is numerically singular")
	ErrNoDesignMatrix    = errors.New("no design matrix")
	ErrNoTarget          = errors.New("no target vector")
	ErrTargetLenMismatch = errors.New("target length does not match design matrix rows")
	ErrZeroTarget        = errors.New("target vector has zero norm")
	ErrAlreadySelected   = errors.New("candidate already selected")
	ErrOutOfRange        = errors.New("candidate index out of range")
	ErrNegativeTolerance = errors.New("negative tolerance")
	ErrNegativeAlpha     = errors.New("negative regularization")
)

const (
	// DefaultTolerance bounds the squared norm of an orthogonalized column
	// relative to the original column's squared norm. Candidates below it
	// are linearly dependent on the accepted basis.
	DefaultTolerance = 1e-12

	// DefaultAlpha disables the regularized ERR denominator.
	DefaultAlpha = 0.0
)

// Options represents input options for the orthogonalization engine.
type Options struct {
	// Tolerance is the relative squared-norm threshold below which a
	// candidate is reported as singular.
	Tolerance float64

	// Alpha is an optional ridge constant added to the ERR denominator,
	// giving uniformly regularized orthogonal least squares. Zero disables
	// it.
	Alpha float64

	// Workers bounds the number of goroutines scoring candidates
	// concurrently. Zero or one scores sequentially.
	Workers int
}

// NewDefaultOptions returns a default set of engine options scoring with one
// worker per CPU.
func NewDefaultOptions() *Options {
	return &Options{
		Tolerance: DefaultTolerance,
		Alpha:     DefaultAlpha,
		Workers:   runtime.NumCPU(),
	}
}

// Validate runs basic validation on engine options, returning a normalized
// copy.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	if o.Alpha < 0 {
		return nil, ErrNegativeAlpha
	}
	opt := *o
	if opt.Tolerance == 0 {
		opt.Tolerance = DefaultTolerance
	}
	if opt.Workers < 1 {
		opt.Workers = 1
	}
	return &opt, nil
}

// Score is the Error Reduction Ratio of one candidate column at the current
// selection step.
type Score struct {
	// Index is the candidate's column index in the design matrix.
	Index int

	// ERR is the fraction of target variance the candidate would explain if
	// accepted now.
	ERR float64

	// Singular marks candidates whose orthogonalized norm fell below
	// tolerance. Singular candidates carry no usable ERR and must not be
	// selected this step.
	Singular bool
}

// Engine holds the incremental orthogonalization state across forward
// selection steps. The design matrix and target are read-only; all growth
// happens in the accepted basis, the recovery matrix, and the residual.
type Engine struct {
	opt *Options

	x    mat.Matrix
	rows int
	cols int

	y   []float64
	yty float64

	xnorm []float64 // squared norms of the original columns

	selected   []int
	isSelected []bool

	q     [][]float64 // accepted orthogonal columns, in selection order
	qnorm []float64   // squared norms of q

	// acols[k] holds the upper-triangular recovery coefficients of the k-th
	// accepted column over the earlier orthogonal basis, with an implicit
	// 1.0 on the diagonal: x_sel(k) = q_k + sum_i acols[k][i] * q_i.
	acols [][]float64

	g        []float64 // projections of the target on each accepted q
	residual []float64
}

// NewEngine prepares an engine over a design matrix and an aligned target
// vector.
func NewEngine(x mat.Matrix, y []float64, opt *Options) (*Engine, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if len(y) == 0 {
		return nil, ErrNoTarget
	}
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("design matrix has %d rows and target has %d, %w", rows, len(y), ErrTargetLenMismatch)
	}

	yCopy := make([]float64, len(y))
	copy(yCopy, y)
	yty := floats.Dot(yCopy, yCopy)
	if yty == 0 {
		return nil, ErrZeroTarget
	}

	xnorm := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		xnorm[j] = floats.Dot(col, col)
	}

	residual := make([]float64, rows)
	copy(residual, yCopy)

	return &Engine{
		opt:        opt,
		x:          x,
		rows:       rows,
		cols:       cols,
		y:          yCopy,
		yty:        yty,
		xnorm:      xnorm,
		isSelected: make([]bool, cols),
		residual:   residual,
	}, nil
}

// NumCandidates returns the design matrix width.
func (e *Engine) NumCandidates() int {
	return e.cols
}

// Selected returns the accepted candidate indices in selection order.
func (e *Engine) Selected() []int {
	sel := make([]int, len(e.selected))
	copy(sel, e.selected)
	return sel
}

// Residual returns a copy of the current residual of the target after
// removing the accepted basis projections.
func (e *Engine) Residual() []float64 {
	r := make([]float64, len(e.residual))
	copy(r, e.residual)
	return r
}

// ResidualNorm returns the Euclidean norm of the current residual.
func (e *Engine) ResidualNorm() float64 {
	return floats.Norm(e.residual, 2)
}

// orthogonalize runs modified Gram-Schmidt of column j against the accepted
// basis, returning the orthogonalized column and the projection coefficients
// onto each accepted q. The classical variant loses orthogonality after a
// few dozen accepted columns, so each projection is subtracted from the
// running vector before the next is computed.
func (e *Engine) orthogonalize(j int) (w, alphas []float64) {
	w = make([]float64, e.rows)
	mat.Col(w, j, e.x)

	alphas = make([]float64, len(e.q))
	for i, qi := range e.q {
		a := floats.Dot(qi, w) / e.qnorm[i]
		alphas[i] = a
		floats.AddScaled(w, -a, qi)
	}
	return w, alphas
}

func (e *Engine) scoreOne(j int) Score {
	w, _ := e.orthogonalize(j)
	wnorm := floats.Dot(w, w)
	if wnorm <= e.opt.Tolerance*e.xnorm[j] {
		return Score{Index: j, Singular: true}
	}
	wy := floats.Dot(w, e.y)
	return Score{
		Index: j,
		ERR:   wy * wy / ((wnorm + e.opt.Alpha) * e.yty),
	}
}

// ScoreCandidates computes the ERR of every unselected candidate against the
// current residual. Candidate projections are independent and share only
// read-only state, so they are fanned out across Workers goroutines. The
// returned slice is ordered by candidate index.
func (e *Engine) ScoreCandidates(ctx context.Context) ([]Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remaining := make([]int, 0, e.cols-len(e.selected))
	for j := 0; j < e.cols; j++ {
		if !e.isSelected[j] {
			remaining = append(remaining, j)
		}
	}

	scores := make([]Score, len(remaining))
	if e.opt.Workers <= 1 || len(remaining) < 2 {
		for i, j := range remaining {
			scores[i] = e.scoreOne(j)
		}
		return scores, nil
	}

	sem := make(chan struct{}, e.opt.Workers)
	var wg sync.WaitGroup
	for i, j := range remaining {
		sem <- struct{}{}
		wg.Add(1)

		go func(i, j int) {
			defer wg.Done()
			defer func() { <-sem }()
			scores[i] = e.scoreOne(j)
		}(i, j)
	}
	wg.Wait()

	return scores, nil
}

// Accept extends the orthogonal basis with candidate j, records its recovery
// coefficients, and deflates the residual. Returns ErrSingularColumn when
// the candidate is linearly dependent on the accepted basis.
func (e *Engine) Accept(j int) error {
	if j < 0 || j >= e.cols {
		return fmt.Errorf("candidate %d of %d, %w", j, e.cols, ErrOutOfRange)
	}
	if e.isSelected[j] {
		return fmt.Errorf("candidate %d, %w", j, ErrAlreadySelected)
	}

	w, alphas := e.orthogonalize(j)
	wnorm := floats.Dot(w, w)
	if wnorm <= e.opt.Tolerance*e.xnorm[j] {
		return fmt.Errorf("candidate %d, %w", j, ErrSingularColumn)
	}

	gk := floats.Dot(w, e.y) / wnorm

	e.q = append(e.q, w)
	e.qnorm = append(e.qnorm, wnorm)
	e.acols = append(e.acols, alphas)
	e.g = append(e.g, gk)
	e.selected = append(e.selected, j)
	e.isSelected[j] = true

	floats.AddScaled(e.residual, -gk, w)
	return nil
}

// Coefficients recovers the regressor-domain coefficients of the accepted
// columns by back substitution through the upper-triangular recovery matrix.
// This avoids re-solving the normal equations of the original submatrix.
func (e *Engine) Coefficients() []float64 {
	theta, _ := e.CoefficientsAt(len(e.selected))
	return theta
}

// CoefficientsAt recovers coefficients for the model truncated to the first
// m accepted columns. The recovery matrix is upper triangular, so the
// leading m x m block is self-contained.
func (e *Engine) CoefficientsAt(m int) ([]float64, error) {
	if m < 0 || m > len(e.selected) {
		return nil, fmt.Errorf("model size %d of %d accepted, %w", m, len(e.selected), ErrOutOfRange)
	}
	theta := make([]float64, m)
	for k := m - 1; k >= 0; k-- {
		theta[k] = e.g[k]
		for j := k + 1; j < m; j++ {
			theta[k] -= e.acols[j][k] * theta[j]
		}
	}
	return theta, nil
}

// ReconstructColumn rebuilds the k-th accepted original column from the
// orthogonal basis and the recovery coefficients. Used to verify the
// orthogonalization round-trip.
func (e *Engine) ReconstructColumn(k int) ([]float64, error) {
	if k < 0 || k >= len(e.selected) {
		return nil, fmt.Errorf("accepted column %d of %d, %w", k, len(e.selected), ErrOutOfRange)
	}
	col := make([]float64, e.rows)
	copy(col, e.q[k])
	for i, a := range e.acols[k] {
		floats.AddScaled(col, a, e.q[i])
	}
	return col, nil
}

// ExplainedVariance returns the cumulative fraction of target variance
// captured by the accepted basis.
func (e *Engine) ExplainedVariance() float64 {
	rnorm := floats.Dot(e.residual, e.residual)
	return 1.0 - rnorm/e.yty
}
