package narmax_test

import (
	"context"
	"math/rand/v2"
	"os"

	narmax "github.com/gosysid/go-narmax"
	"github.com/gosysid/go-narmax/dataset"
	"github.com/gosysid/go-narmax/regressor"
	"github.com/gosysid/go-narmax/selection"
)

func ExampleIdentifier() {
	// simulate a nonlinear system driven by a persistently exciting input
	n := 1000
	rng := rand.New(rand.NewPCG(1, 1))
	u := dataset.GenerateUniformInput(n, 1.0, rng)
	noise := dataset.GenerateNoise(n, 0.02, rng)
	y := dataset.SimulateNARX(n, 2, u, func(yLag, uLag func(lag int) float64, t int) float64 {
		return 0.2*yLag(1) + 0.9*uLag(1) + 0.1*uLag(2)*uLag(2) + noise[t]
	})

	opt := &narmax.Options{
		Space: &regressor.Config{
			MaxLagY:  2,
			MaxLagU:  2,
			Degree:   2,
			Constant: true,
		},
		Selector: narmax.SelectorFROLS,
		FROLS: &selection.FROLSOptions{
			Criterion: selection.CriterionBIC,
		},
	}

	id, err := narmax.New(opt)
	if err != nil {
		panic(err)
	}
	model, err := id.Fit(context.Background(), y, u)
	if err != nil {
		panic(err)
	}

	if err := model.TablePrint(os.Stderr); err != nil {
		panic(err)
	}
}
