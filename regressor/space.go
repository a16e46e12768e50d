package regressor

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDegree   = errors.New("nonlinearity degree must be at least 1")
	ErrInvalidLag      = errors.New("max lag must be at least 1")
	ErrInvalidInputs   = errors.New("number of inputs must be non-negative")
	ErrInvalidOutputs  = errors.New("number of outputs must be at least 1")
	ErrUnknownVariable = errors.New("variable index out of range")
	ErrLagOutOfRange   = errors.New("lag out of range for variable")
)

// Config describes the bounds of a candidate regressor space.
type Config struct {
	// MaxLagY is the largest output lag considered, starting at 1.
	MaxLagY int `json:"max_lag_y"`

	// MaxLagU is the largest input lag considered, starting at 1. Ignored
	// when NumInputs is 0.
	MaxLagU int `json:"max_lag_u"`

	// Degree is the maximum total exponent sum of a candidate term.
	Degree int `json:"degree"`

	// NumInputs is the count of exogenous input channels.
	NumInputs int `json:"n_inputs"`

	// NumOutputs is the count of output channels. More than one output makes
	// lagged values of every channel available as regressors.
	NumOutputs int `json:"n_outputs"`

	// Constant includes the constant (intercept) regressor as a candidate.
	Constant bool `json:"constant"`
}

// NewDefaultConfig returns the config for a univariate NARX space with lag 2
// and degree 2.
func NewDefaultConfig() *Config {
	return &Config{
		MaxLagY:    2,
		MaxLagU:    2,
		Degree:     2,
		NumInputs:  1,
		NumOutputs: 1,
		Constant:   true,
	}
}

// Validate runs basic validation on the space config, returning a normalized
// copy.
func (c *Config) Validate() (*Config, error) {
	if c == nil {
		return NewDefaultConfig(), nil
	}

	cfg := *c
	if cfg.NumOutputs == 0 {
		cfg.NumOutputs = 1
	}
	if cfg.Degree < 1 {
		return nil, fmt.Errorf("got %d, %w", cfg.Degree, ErrInvalidDegree)
	}
	if cfg.MaxLagY < 1 {
		return nil, fmt.Errorf("got output lag %d, %w", cfg.MaxLagY, ErrInvalidLag)
	}
	if cfg.NumInputs < 0 {
		return nil, fmt.Errorf("got %d, %w", cfg.NumInputs, ErrInvalidInputs)
	}
	if cfg.NumInputs > 0 && cfg.MaxLagU < 1 {
		return nil, fmt.Errorf("got input lag %d, %w", cfg.MaxLagU, ErrInvalidLag)
	}
	if cfg.NumOutputs < 1 {
		return nil, fmt.Errorf("got %d, %w", cfg.NumOutputs, ErrInvalidOutputs)
	}
	return &cfg, nil
}

// MaxLag is the number of leading samples that must be trimmed before any
// regressor value is defined.
func (c *Config) MaxLag() int {
	maxLag := c.MaxLagY
	if c.NumInputs > 0 && c.MaxLagU > maxLag {
		maxLag = c.MaxLagU
	}
	return maxLag
}

// Space is the full deduplicated candidate set for one model configuration.
// Codes are ordered by (degree, variable, lag) and the ordering is stable
// across runs.
type Space struct {
	cfg   *Config
	codes []Code
}

// NewSpace enumerates all candidate regressors within the config bounds.
// Candidates are products of size 1..Degree over the pool of lagged
// variables, generated as multisets so that reordered products collapse to a
// single code.
func NewSpace(cfg *Config) (*Space, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	pool := variablePool(cfg)

	var codes []Code
	if cfg.Constant {
		codes = append(codes, Code{})
	}

	// Non-decreasing index sequences over the pool enumerate multisets in
	// lexicographic order, so generation order is already canonical.
	pick := make([]int, 0, cfg.Degree)
	var walk func(start, remaining int)
	walk = func(start, remaining int) {
		if remaining == 0 {
			terms := make([]Term, 0, len(pick))
			for _, idx := range pick {
				terms = append(terms, Term{
					Variable: pool[idx].variable,
					Lag:      pool[idx].lag,
					Exponent: 1,
				})
			}
			codes = append(codes, NewCode(terms...))
			return
		}
		for i := start; i < len(pool); i++ {
			pick = append(pick, i)
			walk(i, remaining-1)
			pick = pick[:len(pick)-1]
		}
	}
	for d := 1; d <= cfg.Degree; d++ {
		walk(0, d)
	}

	return &Space{cfg: cfg, codes: codes}, nil
}

type poolEntry struct {
	variable int
	lag      int
}

func variablePool(cfg *Config) []poolEntry {
	pool := make([]poolEntry, 0, cfg.NumOutputs*cfg.MaxLagY+cfg.NumInputs*cfg.MaxLagU)
	for ch := 0; ch < cfg.NumOutputs; ch++ {
		for lag := 1; lag <= cfg.MaxLagY; lag++ {
			pool = append(pool, poolEntry{variable: 1 + ch, lag: lag})
		}
	}
	for in := 0; in < cfg.NumInputs; in++ {
		for lag := 1; lag <= cfg.MaxLagU; lag++ {
			pool = append(pool, poolEntry{variable: 1 + cfg.NumOutputs + in, lag: lag})
		}
	}
	return pool
}

// Len returns the number of candidate codes.
func (s *Space) Len() int {
	return len(s.codes)
}

// Code returns the candidate at index i. Index order is the canonical
// candidate order used everywhere downstream.
func (s *Space) Code(i int) Code {
	return s.codes[i]
}

// Codes returns a copy of the full candidate list.
func (s *Space) Codes() []Code {
	codes := make([]Code, len(s.codes))
	copy(codes, s.codes)
	return codes
}

// Config returns the validated config the space was built from.
func (s *Space) Config() Config {
	return *s.cfg
}

// Layout describes how lagged variables map onto lagged-matrix columns.
func (s *Space) Layout() Layout {
	return Layout{
		MaxLagY:    s.cfg.MaxLagY,
		MaxLagU:    s.cfg.MaxLagU,
		NumOutputs: s.cfg.NumOutputs,
		NumInputs:  s.cfg.NumInputs,
	}
}

// CountBound computes the closed-form candidate count for a config: the
// number of multisets of size 0..degree over the lagged-variable pool,
// which telescopes to C(V+degree, degree) including the constant.
func CountBound(cfg *Config) (int, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return 0, err
	}
	v := cfg.NumOutputs*cfg.MaxLagY + cfg.NumInputs*cfg.MaxLagU
	n := binomial(v+cfg.Degree, cfg.Degree)
	if !cfg.Constant {
		n--
	}
	return n, nil
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	res := 1
	for i := 1; i <= k; i++ {
		res = res * (n - k + i) / i
	}
	return res
}
