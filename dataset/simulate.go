package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Series is a plain sampled signal with in-place arithmetic helpers for
// composing synthetic datasets.
type Series []float64

// Add accumulates src into the series and returns it for chaining.
func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// Scale multiplies the series by f in place and returns it for chaining.
func (s Series) Scale(f float64) Series {
	floats.Scale(f, s)
	return s
}

// GenerateUniformInput returns n samples drawn uniformly from
// [-amplitude, amplitude].
func GenerateUniformInput(n int, amplitude float64, rng *rand.Rand) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return s
}

// GenerateNoise returns n samples of zero-mean gaussian noise with the given
// standard deviation.
func GenerateNoise(n int, std float64, rng *rand.Rand) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = rng.NormFloat64() * std
	}
	return s
}

// Step is one evaluation of a difference equation: yLag and uLag fetch
// lagged values of the simulated output and the input, with lag 1 being the
// previous sample.
type Step func(yLag, uLag func(lag int) float64, t int) float64

// SimulateNARX runs a difference equation forward over n samples, starting
// from zero initial conditions over the first maxLag samples. The input
// series may be nil for autonomous systems.
func SimulateNARX(n, maxLag int, u Series, next Step) Series {
	y := make(Series, n)
	for t := maxLag; t < n; t++ {
		yLag := func(lag int) float64 {
			return y[t-lag]
		}
		uLag := func(lag int) float64 {
			if u == nil {
				return 0
			}
			return u[t-lag]
		}
		y[t] = next(yLag, uLag, t)
	}
	return y
}
