package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"math/rand/v2"
	"sync"

	"github.com/gosysid/go-narmax/orthogonal"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInvalidPopulation = errors.New("population must be at least 2")
	ErrInvalidIterations = errors.New("iterations must be at least 1")
)

const (
	DefaultPopulation = 30
	DefaultMaxIter    = 100
	DefaultStallIters = 10
	DefaultMetaTol    = 1e-8

	inertiaWeight   = 0.7
	cognitiveWeight = 1.5
	socialWeight    = 1.5
)

// NonConvergenceError reports a meta-heuristic search that exhausted its
// iteration budget without meeting the convergence tolerance. The best
// structure found so far is attached, since a partial answer is usually more
// useful than none.
type NonConvergenceError struct {
	Iterations int
	Best       *Result
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("structure search did not converge after %d iterations", e.Iterations)
}

// MetaMSSOptions represents input options for the meta-heuristic structure
// selector.
type MetaMSSOptions struct {
	// Population is the particle count of the binary swarm.
	Population int

	// MaxIter is the iteration budget. Exceeding it without convergence
	// surfaces a NonConvergenceError carrying the best structure found.
	MaxIter int

	// StallIters is the number of consecutive iterations without a fitness
	// improvement above Tolerance after which the search is converged.
	StallIters int

	// Tolerance is the minimum fitness improvement counted as progress.
	Tolerance float64

	// Criterion scores candidate structures; lower is better.
	Criterion Criterion

	// MaxTerms rejects structures with more terms. Zero disables the cap.
	MaxTerms int

	// Seed fixes the random source so repeated runs explore identically.
	Seed uint64

	// Workers bounds concurrent fitness evaluations.
	Workers int

	// Engine configures the orthogonalization kernel used to order the
	// winning structure.
	Engine *orthogonal.Options
}

// NewDefaultMetaMSSOptions returns a default set of meta-heuristic search
// options.
func NewDefaultMetaMSSOptions() *MetaMSSOptions {
	return &MetaMSSOptions{
		Population: DefaultPopulation,
		MaxIter:    DefaultMaxIter,
		StallIters: DefaultStallIters,
		Tolerance:  DefaultMetaTol,
		Criterion:  CriterionAIC,
		Seed:       1,
		Engine:     orthogonal.NewDefaultOptions(),
	}
}

// Validate runs basic validation on meta-heuristic search options, returning
// a normalized copy.
func (o *MetaMSSOptions) Validate() (*MetaMSSOptions, error) {
	if o == nil {
		return NewDefaultMetaMSSOptions(), nil
	}
	if o.Population < 0 || o.Population == 1 {
		return nil, fmt.Errorf("got %d, %w", o.Population, ErrInvalidPopulation)
	}
	if o.MaxIter < 0 {
		return nil, fmt.Errorf("got %d, %w", o.MaxIter, ErrInvalidIterations)
	}
	if o.Tolerance < 0 {
		return nil, fmt.Errorf("got %f, %w", o.Tolerance, ErrInvalidThreshold)
	}
	if err := o.Criterion.Validate(); err != nil {
		return nil, err
	}

	opt := *o
	if opt.Population == 0 {
		opt.Population = DefaultPopulation
	}
	if opt.MaxIter == 0 {
		opt.MaxIter = DefaultMaxIter
	}
	if opt.StallIters <= 0 {
		opt.StallIters = DefaultStallIters
	}
	if opt.Tolerance == 0 {
		opt.Tolerance = DefaultMetaTol
	}
	if opt.Criterion == "" {
		opt.Criterion = CriterionAIC
	}
	if opt.Seed == 0 {
		opt.Seed = 1
	}
	if opt.Workers < 1 {
		opt.Workers = 1
	}
	eng, err := opt.Engine.Validate()
	if err != nil {
		return nil, err
	}
	opt.Engine = eng
	return &opt, nil
}

// MetaMSS searches the space of regressor inclusion masks with a binary
// particle swarm. Fitness of a mask is the information criterion of a least
// squares fit restricted to the mask's columns. Fitness evaluations are
// independent and run concurrently.
type MetaMSS struct {
	opt *MetaMSSOptions
}

// NewMetaMSS initializes a meta-heuristic selector ready to run.
func NewMetaMSS(opt *MetaMSSOptions) (*MetaMSS, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &MetaMSS{opt: opt}, nil
}

func (m *MetaMSS) Name() string {
	return "metamss"
}

type particle struct {
	mask     []uint64
	velocity []float64
	best     []uint64
	bestFit  float64
	fit      float64
}

// Select searches for the regressor subset minimizing the information
// criterion. On success the winning mask is ordered into a Result by a
// restricted greedy ERR pass. When the iteration budget runs out the best
// structure so far is returned together with a NonConvergenceError.
func (m *MetaMSS) Select(ctx context.Context, x mat.Matrix, y []float64) (*Result, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("design matrix has %d rows and target has %d, %w", rows, len(y), orthogonal.ErrTargetLenMismatch)
	}

	rng := rand.New(rand.NewPCG(m.opt.Seed, m.opt.Seed))
	words := (cols + 63) / 64

	swarm := make([]*particle, m.opt.Population)
	for i := range swarm {
		p := &particle{
			mask:     make([]uint64, words),
			velocity: make([]float64, cols),
			best:     make([]uint64, words),
			bestFit:  math.Inf(1),
		}
		for j := 0; j < cols; j++ {
			if rng.Float64() < 0.5 {
				p.mask[j/64] |= 1 << (j % 64)
			}
			p.velocity[j] = rng.Float64()*2 - 1
		}
		swarm[i] = p
	}

	gbest := make([]uint64, words)
	gbestFit := math.Inf(1)
	stall := 0
	converged := false
	iter := 0

	for ; iter < m.opt.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m.evaluate(swarm, x, y, rows, cols)

		improved := false
		for _, p := range swarm {
			if p.fit < p.bestFit {
				p.bestFit = p.fit
				copy(p.best, p.mask)
			}
			if p.fit < gbestFit-m.opt.Tolerance {
				improved = true
			}
			if p.fit < gbestFit {
				gbestFit = p.fit
				copy(gbest, p.mask)
			}
		}

		if improved {
			stall = 0
		} else {
			stall++
			if stall >= m.opt.StallIters {
				converged = true
				break
			}
		}

		for _, p := range swarm {
			for j := 0; j < cols; j++ {
				bit := float64((p.mask[j/64] >> (j % 64)) & 1)
				pbit := float64((p.best[j/64] >> (j % 64)) & 1)
				gbit := float64((gbest[j/64] >> (j % 64)) & 1)

				v := inertiaWeight*p.velocity[j] +
					cognitiveWeight*rng.Float64()*(pbit-bit) +
					socialWeight*rng.Float64()*(gbit-bit)
				p.velocity[j] = v

				if rng.Float64() < sigmoid(v) {
					p.mask[j/64] |= 1 << (j % 64)
				} else {
					p.mask[j/64] &^= 1 << (j % 64)
				}
			}
		}
	}

	if math.IsInf(gbestFit, 1) {
		slog.Warn("structure search found no feasible mask", "iterations", iter)
		return nil, &NonConvergenceError{Iterations: iter}
	}

	res, err := m.orderMask(ctx, x, y, gbest, cols)
	if err != nil {
		return nil, err
	}
	if !converged {
		res.State = StateMaxTermsReached
		return res, &NonConvergenceError{Iterations: iter, Best: res}
	}
	return res, nil
}

// evaluate computes the fitness of every particle's current mask, fanning
// the independent least squares fits across Workers goroutines.
func (m *MetaMSS) evaluate(swarm []*particle, x mat.Matrix, y []float64, rows, cols int) {
	sem := make(chan struct{}, m.opt.Workers)
	var wg sync.WaitGroup
	for _, p := range swarm {
		sem <- struct{}{}
		wg.Add(1)

		go func(p *particle) {
			defer wg.Done()
			defer func() { <-sem }()
			p.fit = m.fitness(p.mask, x, y, rows, cols)
		}(p)
	}
	wg.Wait()
}

// fitness scores a mask by fitting least squares on its columns and
// computing the information criterion of the residual. Infeasible masks
// (empty, over the term cap, or singular) score +Inf and are recovered from
// by the swarm moving away, not by failing the search.
func (m *MetaMSS) fitness(mask []uint64, x mat.Matrix, y []float64, rows, cols int) float64 {
	idx := maskIndices(mask, cols)
	k := len(idx)
	if k == 0 || k >= rows {
		return math.Inf(1)
	}
	if m.opt.MaxTerms > 0 && k > m.opt.MaxTerms {
		return math.Inf(1)
	}

	sub := mat.NewDense(rows, k, nil)
	col := make([]float64, rows)
	for i, j := range idx {
		mat.Col(col, j, x)
		sub.SetCol(i, col)
	}

	var theta mat.Dense
	if err := theta.Solve(sub, mat.NewDense(rows, 1, append([]float64(nil), y...))); err != nil {
		return math.Inf(1)
	}

	var yhat mat.Dense
	yhat.Mul(sub, &theta)
	residual := make([]float64, rows)
	for t := 0; t < rows; t++ {
		residual[t] = y[t] - yhat.At(t, 0)
	}

	eVar := stat.Variance(residual, nil)
	val, err := m.opt.Criterion.Value(k, rows, eVar)
	if err != nil {
		return math.Inf(1)
	}
	return val
}

// orderMask turns the winning mask into an ordered Result via a greedy ERR
// pass restricted to the mask's columns, so selection order still encodes
// significance.
func (m *MetaMSS) orderMask(ctx context.Context, x mat.Matrix, y []float64, mask []uint64, cols int) (*Result, error) {
	eng, err := orthogonal.NewEngine(x, y, m.opt.Engine)
	if err != nil {
		return nil, err
	}

	inMask := make([]bool, cols)
	remaining := 0
	for _, j := range maskIndices(mask, cols) {
		inMask[j] = true
		remaining++
	}

	res := &Result{State: StateConverged}
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores, err := eng.ScoreCandidates(ctx)
		if err != nil {
			return nil, err
		}

		best := -1
		bestERR := math.Inf(-1)
		for _, sc := range scores {
			if !inMask[sc.Index] || sc.Singular {
				continue
			}
			if sc.ERR > bestERR {
				best = sc.Index
				bestERR = sc.ERR
			}
		}
		if best < 0 {
			break
		}

		if err := eng.Accept(best); err != nil {
			return nil, err
		}
		inMask[best] = false
		remaining--
		res.Picks = append(res.Picks, best)
		res.ERR = append(res.ERR, bestERR)
		res.ResidualNorms = append(res.ResidualNorms, eng.ResidualNorm())
	}

	res.Coefficients = eng.Coefficients()
	res.ExplainedVariance = eng.ExplainedVariance()
	return res, nil
}

func maskIndices(mask []uint64, cols int) []int {
	idx := make([]int, 0, popcount(mask))
	for j := 0; j < cols; j++ {
		if mask[j/64]>>(j%64)&1 == 1 {
			idx = append(idx, j)
		}
	}
	return idx
}

func popcount(mask []uint64) int {
	var n int
	for _, w := range mask {
		n += bits.OnesCount64(w)
	}
	return n
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}
