package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
)

func isp() *config.ExtractorConfig {
	return &config.ExtractorConfig{
		AttributePattern: "engines.isp_s",
		EntityType:       models.EntityTypeEngine,
		Patterns:         []string{`(\d+)\s*(s|sec|seconds)\s+isp`},
		TargetUnit:       "s",
		UnitFactors:      map[string]float64{"s": 1, "sec": 1, "seconds": 1},
	}
}

func raptor() *models.Entity {
	return &models.Entity{
		ID:            "ent-1",
		CanonicalName: "Raptor",
		EntityType:    models.EntityTypeEngine,
		Aliases:       []string{"Raptor 2", "SpaceX Raptor"},
	}
}

func TestFindMatches_BaseConfidenceWithoutAliasOrTable(t *testing.T) {
	text := "The engine achieves 350 s isp during vacuum testing at the facility."
	matches := findMatches(isp(), nil, models.SnippetTypeText, text)

	assert.Len(t, matches, 1)
	assert.InDelta(t, 350.0, matches[0].Value, 0.001)
	assert.InDelta(t, baseConfidence, matches[0].Confidence, 0.001)
}

func TestFindMatches_AliasProximityBonus(t *testing.T) {
	text := "The Raptor engine achieves 350 s isp during vacuum testing at the facility."
	matches := findMatches(isp(), raptor(), models.SnippetTypeText, text)

	assert.Len(t, matches, 1)
	assert.InDelta(t, baseConfidence+aliasProximityBonus, matches[0].Confidence, 0.001)
}

func TestFindMatches_TableBonusStacksWithAlias(t *testing.T) {
	text := "The Raptor engine achieves 350 s isp during vacuum testing at the facility."
	matches := findMatches(isp(), raptor(), models.SnippetTypeTable, text)

	assert.Len(t, matches, 1)
	assert.InDelta(t, maxConfidence, matches[0].Confidence, 0.001) // 0.70+0.15+0.10 clamps to 0.95
}

func TestFindMatches_AliasFarAwayDoesNotApply(t *testing.T) {
	padding := ""
	for i := 0; i < 60; i++ {
		padding += "filler word "
	}
	text := "Raptor is mentioned here. " + padding + "350 s isp measured downstream."
	matches := findMatches(isp(), raptor(), models.SnippetTypeText, text)

	assert.Len(t, matches, 1)
	assert.InDelta(t, baseConfidence, matches[0].Confidence, 0.001)
}

func TestFindMatches_UnitConversion(t *testing.T) {
	cfg := &config.ExtractorConfig{
		AttributePattern: "engines.thrust_n",
		EntityType:       models.EntityTypeEngine,
		Patterns:         []string{`([\d,]+)\s*(kn|n)\b`},
		TargetUnit:       "n",
		UnitFactors:      map[string]float64{"n": 1, "kn": 1000},
	}
	text := "thrust rated at 2,300 kn at sea level."
	matches := findMatches(cfg, nil, models.SnippetTypeText, text)

	assert.Len(t, matches, 1)
	assert.InDelta(t, 2_300_000, matches[0].Value, 0.001)
}

func TestQuoteAround_TrimsAndEllipsizes(t *testing.T) {
	text := "prefix " + repeat("x", 300) + " MATCH " + repeat("y", 300) + " suffix"
	start := len("prefix " + repeat("x", 300) + " ")
	end := start + len("MATCH")

	quote := quoteAround(text, start, end)
	assert.Contains(t, quote, "MATCH")
	assert.True(t, len(quote) < len(text))
	assert.Contains(t, quote, "…")
}

func TestInferScope_DetectsVacuumAndThrottle(t *testing.T) {
	scope := inferScope("Measured in vacuum at 100% throttle during the static fire test.")
	assert.Equal(t, "vac", scope["altitude"])
	assert.Equal(t, "100%", scope["throttle"])
}

func TestInferScope_DetectsSeaLevel(t *testing.T) {
	scope := inferScope("Sea level thrust was recorded during the hold-down firing.")
	assert.Equal(t, "sl", scope["altitude"])
}

func TestInferScope_EmptyWhenNoCues(t *testing.T) {
	scope := inferScope("No altitude or throttle information appears in this sentence at all.")
	assert.Empty(t, scope)
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
