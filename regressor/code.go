// Package regressor enumerates and encodes the candidate term space of a
// polynomial NARX model. Each candidate is a product of lagged output and
// input values raised to integer exponents.
package regressor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Term is a single (variable, lag, exponent) factor of a candidate
// regressor. Variable index 0 is reserved for the constant, 1..p address the
// output channels, and p+1..p+q address the input channels.
type Term struct {
	Variable int `json:"variable"`
	Lag      int `json:"lag"`
	Exponent int `json:"exponent"`
}

// Code is one candidate regressor, e.g. y(k-1)*u(k-2)^2. Terms are kept
// sorted by (variable, lag) and are not mutated after construction. The zero
// value is the constant regressor.
type Code struct {
	terms []Term
}

// NewCode builds a code from its factors, folding repeated (variable, lag)
// pairs into a single term with summed exponents.
func NewCode(terms ...Term) Code {
	folded := make(map[[2]int]int, len(terms))
	for _, t := range terms {
		if t.Exponent == 0 {
			continue
		}
		folded[[2]int{t.Variable, t.Lag}] += t.Exponent
	}

	out := make([]Term, 0, len(folded))
	for k, exp := range folded {
		out = append(out, Term{Variable: k[0], Lag: k[1], Exponent: exp})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Variable != out[j].Variable {
			return out[i].Variable < out[j].Variable
		}
		return out[i].Lag < out[j].Lag
	})
	return Code{terms: out}
}

// Terms returns a copy of the code's factors.
func (c Code) Terms() []Term {
	terms := make([]Term, len(c.terms))
	copy(terms, c.terms)
	return terms
}

// Degree is the total exponent sum of the code. The constant has degree 0.
func (c Code) Degree() int {
	var d int
	for _, t := range c.terms {
		d += t.Exponent
	}
	return d
}

// IsConstant reports whether the code is the constant regressor.
func (c Code) IsConstant() bool {
	return len(c.terms) == 0
}

// MaxLag returns the largest lag referenced by the code.
func (c Code) MaxLag() int {
	var maxLag int
	for _, t := range c.terms {
		if t.Lag > maxLag {
			maxLag = t.Lag
		}
	}
	return maxLag
}

func (c Code) String() string {
	if c.IsConstant() {
		return "1"
	}
	var sb strings.Builder
	for _, t := range c.terms {
		fmt.Fprintf(&sb, "x%d(k-%d)", t.Variable, t.Lag)
		if t.Exponent > 1 {
			fmt.Fprintf(&sb, "^%d", t.Exponent)
		}
	}
	return sb.String()
}

// Equal reports whether two codes describe the same term.
func (c Code) Equal(other Code) bool {
	if len(c.terms) != len(other.terms) {
		return false
	}
	for i := range c.terms {
		if c.terms[i] != other.terms[i] {
			return false
		}
	}
	return true
}

// Compare orders codes by (degree, term sequence). Used to keep candidate
// enumeration deterministic, which the forward selection tie-break relies on.
func (c Code) Compare(other Code) int {
	if d := c.Degree() - other.Degree(); d != 0 {
		return d
	}
	for i := 0; i < len(c.terms) && i < len(other.terms); i++ {
		if c.terms[i].Variable != other.terms[i].Variable {
			return c.terms[i].Variable - other.terms[i].Variable
		}
		if c.terms[i].Lag != other.terms[i].Lag {
			return c.terms[i].Lag - other.terms[i].Lag
		}
		if c.terms[i].Exponent != other.terms[i].Exponent {
			return c.terms[i].Exponent - other.terms[i].Exponent
		}
	}
	return len(c.terms) - len(other.terms)
}

func (c Code) MarshalJSON() ([]byte, error) {
	terms := c.terms
	if terms == nil {
		terms = []Term{}
	}
	return json.Marshal(terms)
}

func (c *Code) UnmarshalJSON(data []byte) error {
	var terms []Term
	if err := json.Unmarshal(data, &terms); err != nil {
		return err
	}
	*c = NewCode(terms...)
	return nil
}
