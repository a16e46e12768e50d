// Package selection implements model structure selection over a candidate
// design matrix: the FROLS greedy forward selector, the accelerated
// orthogonal least squares variant, and a meta-heuristic search. All
// strategies return the same Result shape.
package selection

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownCriterion = errors.New("unknown information criterion")

// Criterion names an information criterion used to score a model of k terms
// against the residual variance it leaves.
type Criterion string

const (
	CriterionAIC  Criterion = "aic"
	CriterionAICc Criterion = "aicc"
	CriterionBIC  Criterion = "bic"
	CriterionFPE  Criterion = "fpe"
	CriterionLILC Criterion = "lilc"
)

// Validate checks that the criterion is a known one.
func (c Criterion) Validate() error {
	switch c {
	case CriterionAIC, CriterionAICc, CriterionBIC, CriterionFPE, CriterionLILC, "":
		return nil
	}
	return fmt.Errorf("got %q, %w", c, ErrUnknownCriterion)
}

// Value computes the criterion for a model with nTheta terms fitted on
// nSamples rows leaving residual variance eVar. Lower is better for every
// criterion.
func (c Criterion) Value(nTheta, nSamples int, eVar float64) (float64, error) {
	n := float64(nSamples)
	k := float64(nTheta)
	eFactor := n * math.Log(eVar)

	switch c {
	case CriterionAIC:
		return eFactor + 2*k, nil
	case CriterionAICc:
		return eFactor + 2*k + 2*k*(k+1)/(n-k-1), nil
	case CriterionBIC:
		return eFactor + k*math.Log(n), nil
	case CriterionFPE:
		return eFactor + n*math.Log((n+k)/(n-k)), nil
	case CriterionLILC:
		return eFactor + 2*k*math.Log(math.Log(n)), nil
	}
	return 0, fmt.Errorf("got %q, %w", c, ErrUnknownCriterion)
}
