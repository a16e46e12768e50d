package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriterionValidate(t *testing.T) {
	testData := map[string]struct {
		criterion Criterion
		err       error
	}{
		"aic":     {CriterionAIC, nil},
		"aicc":    {CriterionAICc, nil},
		"bic":     {CriterionBIC, nil},
		"fpe":     {CriterionFPE, nil},
		"lilc":    {CriterionLILC, nil},
		"empty":   {Criterion(""), nil},
		"unknown": {Criterion("mdl"), ErrUnknownCriterion},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.criterion.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestCriterionValue(t *testing.T) {
	// k=3 terms on n=100 samples leaving residual variance 0.5
	testData := map[string]struct {
		criterion Criterion
		expected  float64
	}{
		"aic":  {CriterionAIC, -63.3147},
		"aicc": {CriterionAICc, -63.0647},
		"bic":  {CriterionBIC, -55.4992},
		"fpe":  {CriterionFPE, -63.3132},
		"lilc": {CriterionLILC, -60.1516},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, err := td.criterion.Value(3, 100, 0.5)
			assert.Nil(t, err)
			assert.InDelta(t, td.expected, val, 1e-3)
		})
	}

	_, err := Criterion("mdl").Value(3, 100, 0.5)
	assert.ErrorIs(t, err, ErrUnknownCriterion)
}

func TestCriterionPenalizesTerms(t *testing.T) {
	for _, c := range []Criterion{CriterionAIC, CriterionAICc, CriterionBIC, CriterionFPE, CriterionLILC} {
		small, err := c.Value(2, 200, 0.3)
		assert.Nil(t, err)
		large, err := c.Value(5, 200, 0.3)
		assert.Nil(t, err)
		assert.Less(t, small, large, "criterion %s", c)
	}
}
