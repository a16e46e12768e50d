package regressor

import (
	"fmt"
	"strings"
)

// Layout maps (variable, lag) pairs onto columns of the lagged-variable
// matrix built by Space.LaggedMatrix. Output channels come first, each
// contributing MaxLagY columns, followed by MaxLagU columns per input.
type Layout struct {
	MaxLagY    int
	MaxLagU    int
	NumOutputs int
	NumInputs  int
}

// NumColumns is the width of the lagged-variable matrix.
func (l Layout) NumColumns() int {
	return l.NumOutputs*l.MaxLagY + l.NumInputs*l.MaxLagU
}

// Column resolves a term's lagged value to its column index.
func (l Layout) Column(t Term) (int, error) {
	switch {
	case t.Variable >= 1 && t.Variable <= l.NumOutputs:
		if t.Lag < 1 || t.Lag > l.MaxLagY {
			return 0, fmt.Errorf("output lag %d, %w", t.Lag, ErrLagOutOfRange)
		}
		return (t.Variable-1)*l.MaxLagY + t.Lag - 1, nil
	case t.Variable > l.NumOutputs && t.Variable <= l.NumOutputs+l.NumInputs:
		if t.Lag < 1 || t.Lag > l.MaxLagU {
			return 0, fmt.Errorf("input lag %d, %w", t.Lag, ErrLagOutOfRange)
		}
		return l.NumOutputs*l.MaxLagY + (t.Variable-l.NumOutputs-1)*l.MaxLagU + t.Lag - 1, nil
	default:
		return 0, fmt.Errorf("variable %d, %w", t.Variable, ErrUnknownVariable)
	}
}

// Label renders a term's lagged variable with y/u naming, e.g. "y(k-1)" or
// "u2(k-3)". Channel suffixes are omitted for single-channel variables.
func (l Layout) Label(t Term) string {
	switch {
	case t.Variable >= 1 && t.Variable <= l.NumOutputs:
		if l.NumOutputs == 1 {
			return fmt.Sprintf("y(k-%d)", t.Lag)
		}
		return fmt.Sprintf("y%d(k-%d)", t.Variable, t.Lag)
	case t.Variable > l.NumOutputs && t.Variable <= l.NumOutputs+l.NumInputs:
		if l.NumInputs == 1 {
			return fmt.Sprintf("u(k-%d)", t.Lag)
		}
		return fmt.Sprintf("u%d(k-%d)", t.Variable-l.NumOutputs, t.Lag)
	default:
		return fmt.Sprintf("x%d(k-%d)", t.Variable, t.Lag)
	}
}

// Format renders a full code with y/u naming, e.g. "y(k-1)u(k-2)^2".
func (l Layout) Format(c Code) string {
	if c.IsConstant() {
		return "1"
	}
	var sb strings.Builder
	for _, t := range c.terms {
		sb.WriteString(l.Label(t))
		if t.Exponent > 1 {
			fmt.Fprintf(&sb, "^%d", t.Exponent)
		}
	}
	return sb.String()
}
