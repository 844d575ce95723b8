package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResolverPolicy_MonotoneAcrossSlider(t *testing.T) {
	r := DefaultResolverPolicy()
	require.NoError(t, (&Validator{cfg: &Config{Resolver: r}}).validateResolver())

	conservative := r.At(0)
	assertive := r.At(1)
	assert.GreaterOrEqual(t, conservative.MinTruth, assertive.MinTruth)
	assert.GreaterOrEqual(t, conservative.MinIndependentSources, assertive.MinIndependentSources)
	assert.LessOrEqual(t, conservative.MaxAllowedContradiction, assertive.MaxAllowedContradiction)
	assert.GreaterOrEqual(t, conservative.TieMargin, assertive.TieMargin)
}

func TestResolverPolicy_AtClampsSlider(t *testing.T) {
	r := DefaultResolverPolicy()
	below := r.At(-1)
	above := r.At(2)
	assert.Equal(t, r.Conservative, below)
	assert.Equal(t, r.Assertive, above)
}

func TestMergeExtractors_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]*ExtractorConfig{
		"engines.isp_s": {AttributePattern: "engines.isp_s", EntityType: "engine", TargetUnit: "s", Patterns: []string{`(\d+)`}},
	}
	user := map[string]ExtractorConfig{
		"engines.isp_s": {EntityType: "engine", TargetUnit: "s", Patterns: []string{`(\d+)\s*isp`}},
	}

	merged := mergeExtractors(builtin, user)
	require.Contains(t, merged, "engines.isp_s")
	assert.Equal(t, []string{`(\d+)\s*isp`}, merged["engines.isp_s"].Patterns)
	assert.Equal(t, "engines.isp_s", merged["engines.isp_s"].AttributePattern)
}

func TestMergeExtractors_BuiltinSurvivesWhenNotOverridden(t *testing.T) {
	builtin := map[string]*ExtractorConfig{
		"engines.thrust_n": {AttributePattern: "engines.thrust_n", EntityType: "engine", TargetUnit: "n"},
	}
	merged := mergeExtractors(builtin, map[string]ExtractorConfig{})
	require.Contains(t, merged, "engines.thrust_n")
	assert.Equal(t, "n", merged["engines.thrust_n"].TargetUnit)
}

func TestValidator_RejectsBadScorerPolicy(t *testing.T) {
	cfg := &Config{
		Database: DefaultDatabaseConfig(),
		Job:      DefaultJobConfig(),
		Feed:     DefaultFeedConfig(),
		Scorer: &ScorerPolicy{
			DocTypeMultiplier:  map[string]float64{"other": 0.3},
			LowQualityCapRatio: 1.5,
			RecencyHalfLifeDays: 1,
		},
		Resolver:               DefaultResolverPolicy(),
		ExtractorRegistry:      NewExtractorRegistry(nil),
		DerivationRuleRegistry: NewDerivationRuleRegistry(nil),
	}
	cfg.Database.Host = "localhost"

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "low_quality_cap_ratio", ve.Field)
}

func TestValidator_RejectsInvalidExtractorRegex(t *testing.T) {
	cfg := &Config{
		Database: &DatabaseConfig{Host: "localhost", MaxOpenConns: 5},
		Job:      DefaultJobConfig(),
		Feed:     DefaultFeedConfig(),
		Scorer:   DefaultScorerPolicy(),
		Resolver: DefaultResolverPolicy(),
		ExtractorRegistry: NewExtractorRegistry(map[string]*ExtractorConfig{
			"bad": {AttributePattern: "bad", EntityType: "engine", TargetUnit: "n", Patterns: []string{"("}},
		}),
		DerivationRuleRegistry: NewDerivationRuleRegistry(nil),
	}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
}
