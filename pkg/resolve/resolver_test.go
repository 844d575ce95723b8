package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
)

func TestComputeTruthDisplay_MonotoneInSlider(t *testing.T) {
	conservative := computeTruthDisplay(0.6, 0)
	balanced := computeTruthDisplay(0.6, 0.5)
	assertive := computeTruthDisplay(0.6, 1)

	assert.LessOrEqual(t, conservative, balanced)
	assert.LessOrEqual(t, balanced, assertive)
}

func TestComputeTruthDisplay_MonotoneInTruthRaw(t *testing.T) {
	for _, slider := range []float64{0, 0.5, 1} {
		lower := computeTruthDisplay(0.3, slider)
		higher := computeTruthDisplay(0.7, slider)
		assert.LessOrEqual(t, lower, higher)
	}
}

func TestComputeTruthDisplay_FixedPointsAtZeroAndOne(t *testing.T) {
	for _, slider := range []float64{0, 0.3, 0.5, 0.8, 1} {
		assert.InDelta(t, 0.0, computeTruthDisplay(0, slider), 1e-9)
		assert.InDelta(t, 1.0, computeTruthDisplay(1, slider), 1e-9)
	}
}

func TestComputeTruthDisplay_ConservativeSliderPullsDown(t *testing.T) {
	assert.Less(t, computeTruthDisplay(0.6, 0), 0.6)
}

func TestComputeTruthDisplay_AssertiveSliderPullsUp(t *testing.T) {
	assert.Greater(t, computeTruthDisplay(0.6, 1), 0.6)
}

func TestModeLabel_Thresholds(t *testing.T) {
	assert.Equal(t, ModeConservative, modeLabel(0))
	assert.Equal(t, ModeConservative, modeLabel(0.32))
	assert.Equal(t, ModeBalanced, modeLabel(0.33))
	assert.Equal(t, ModeBalanced, modeLabel(0.66))
	assert.Equal(t, ModeAssertive, modeLabel(0.67))
	assert.Equal(t, ModeAssertive, modeLabel(1))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}

func conservativePolicy() config.DisplayPolicyPoint {
	return config.DisplayPolicyPoint{
		MinTruth:                0.6,
		MinIndependentSources:   2,
		MaxAllowedContradiction: 0.15,
		TieMargin:               0.1,
	}
}

func alt(truthDisplay float64, independentSources int, contradiction float64) *Alternative {
	return &Alternative{
		TruthDisplay: truthDisplay,
		Metrics: &models.TruthMetrics{
			IndependentSources: independentSources,
			ContradictionScore: contradiction,
		},
	}
}

func TestSelectBestAnswer_NoAlternatives(t *testing.T) {
	best, status := selectBestAnswer(nil, conservativePolicy())
	assert.Nil(t, best)
	assert.Equal(t, StatusUnknown, status)
}

func TestSelectBestAnswer_PassesAllGates(t *testing.T) {
	alternatives := []*Alternative{
		alt(0.9, 3, 0.05),
		alt(0.5, 3, 0.05),
	}
	best, status := selectBestAnswer(alternatives, conservativePolicy())
	assert.NotNil(t, best)
	assert.Equal(t, StatusResolved, status)
}

func TestSelectBestAnswer_FailsMinTruth(t *testing.T) {
	alternatives := []*Alternative{alt(0.2, 3, 0.0)}
	best, status := selectBestAnswer(alternatives, conservativePolicy())
	assert.Nil(t, best)
	assert.Equal(t, StatusInsufficient, status)
}

func TestSelectBestAnswer_FailsMinIndependentSources(t *testing.T) {
	alternatives := []*Alternative{alt(0.9, 1, 0.0)}
	best, status := selectBestAnswer(alternatives, conservativePolicy())
	assert.Nil(t, best)
	assert.Equal(t, StatusInsufficient, status)
}

func TestSelectBestAnswer_FailsMaxAllowedContradiction(t *testing.T) {
	alternatives := []*Alternative{alt(0.9, 3, 0.5)}
	best, status := selectBestAnswer(alternatives, conservativePolicy())
	assert.Nil(t, best)
	assert.Equal(t, StatusDisputed, status)
}

func TestSelectBestAnswer_FailsTieMargin(t *testing.T) {
	alternatives := []*Alternative{
		alt(0.9, 3, 0.0),
		alt(0.85, 3, 0.0),
	}
	best, status := selectBestAnswer(alternatives, conservativePolicy())
	assert.Nil(t, best)
	assert.Equal(t, StatusDisputed, status)
}
