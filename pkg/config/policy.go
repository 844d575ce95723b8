package config

import "fmt"

// ScorerPolicy holds the tunable weights the Scorer uses to turn evidence
// into truthRaw (spec §4.6). The exact recency curve and cluster-weight
// schedule are policy constants per spec §9's open question; this
// implementation pins a half-life decay and a harmonic cluster schedule,
// both monotone as required.
type ScorerPolicy struct {
	// DocTypeMultiplier maps a document's docType to a trust multiplier.
	// "other" is used for any docType not present in the map.
	DocTypeMultiplier map[string]float64 `yaml:"doc_type_multiplier,omitempty"`

	// LowQualityDocTypes marks docTypes whose support is capped relative
	// to high-quality support.
	LowQualityDocTypes []string `yaml:"low_quality_doc_types,omitempty"`

	// LowQualityCapRatio is the maximum ratio of low-quality support to
	// high-quality support before capping kicks in.
	LowQualityCapRatio float64 `yaml:"low_quality_cap_ratio,omitempty"`

	// Prior ("k") biases truth_raw toward uncertainty when evidence is thin.
	Prior float64 `yaml:"prior,omitempty"`

	// RecencyHalfLifeDays is the half-life of the exponential recency decay.
	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days,omitempty"`

	// RecencyFloor is the minimum recency score for a non-superseded
	// document, regardless of age.
	RecencyFloor float64 `yaml:"recency_floor,omitempty"`
}

// Multiplier returns the configured docType multiplier, falling back to
// the "other" bucket when docType is unrecognized.
func (p *ScorerPolicy) Multiplier(docType string) float64 {
	if m, ok := p.DocTypeMultiplier[docType]; ok {
		return m
	}
	return p.DocTypeMultiplier["other"]
}

// IsLowQuality reports whether docType is configured as low-quality.
func (p *ScorerPolicy) IsLowQuality(docType string) bool {
	for _, t := range p.LowQualityDocTypes {
		if t == docType {
			return true
		}
	}
	return false
}

// DefaultScorerPolicy returns the built-in scoring policy.
func DefaultScorerPolicy() *ScorerPolicy {
	return &ScorerPolicy{
		DocTypeMultiplier: map[string]float64{
			"technical_report": 1.0,
			"press_release":    0.7,
			"news_article":     0.6,
			"wiki":             0.4,
			"blog_post":        0.3,
			"forum_post":       0.2,
			"other":            0.3,
		},
		LowQualityDocTypes:  []string{"forum_post", "blog_post", "wiki"},
		LowQualityCapRatio:  0.5,
		Prior:               1.0,
		RecencyHalfLifeDays: 365,
		RecencyFloor:        0.05,
	}
}

// DisplayPolicyPoint is one end of the slider-interpolated DISPLAY_POLICY
// gate table used by the FactResolver (spec §4.7).
type DisplayPolicyPoint struct {
	MinTruth                float64 `yaml:"min_truth"`
	MinIndependentSources   int     `yaml:"min_independent_sources"`
	MaxAllowedContradiction float64 `yaml:"max_allowed_contradiction"`
	TieMargin               float64 `yaml:"tie_margin"`
}

// ResolverPolicy holds the FactResolver's confidence-slider-interpolated
// gate table: Conservative is the policy at slider=0, Assertive at
// slider=1; intermediate sliders interpolate linearly between them.
type ResolverPolicy struct {
	Conservative DisplayPolicyPoint `yaml:"conservative"`
	Assertive    DisplayPolicyPoint `yaml:"assertive"`
}

// At linearly interpolates the gate table at the given slider position.
func (p *ResolverPolicy) At(slider float64) DisplayPolicyPoint {
	if slider < 0 {
		slider = 0
	}
	if slider > 1 {
		slider = 1
	}
	lerp := func(a, b float64) float64 { return a*(1-slider) + b*slider }
	return DisplayPolicyPoint{
		MinTruth:                lerp(p.Conservative.MinTruth, p.Assertive.MinTruth),
		MinIndependentSources:   int(lerp(float64(p.Conservative.MinIndependentSources), float64(p.Assertive.MinIndependentSources)) + 0.5),
		MaxAllowedContradiction: lerp(p.Conservative.MaxAllowedContradiction, p.Assertive.MaxAllowedContradiction),
		TieMargin:               lerp(p.Conservative.TieMargin, p.Assertive.TieMargin),
	}
}

// DefaultResolverPolicy returns the built-in DISPLAY_POLICY table.
// At slider=0 the gates are strict (conservative); at slider=1 they relax
// (assertive), consistent with spec §4.7's monotone requirement.
func DefaultResolverPolicy() *ResolverPolicy {
	return &ResolverPolicy{
		Conservative: DisplayPolicyPoint{
			MinTruth:                0.6,
			MinIndependentSources:   2,
			MaxAllowedContradiction: 0.15,
			TieMargin:               0.1,
		},
		Assertive: DisplayPolicyPoint{
			MinTruth:                0.35,
			MinIndependentSources:   1,
			MaxAllowedContradiction: 0.4,
			TieMargin:               0.02,
		},
	}
}

// ExtractorConfig defines one AttributeExtractor: an attribute pattern,
// an ordered list of value-capturing regexes, a target unit, and the
// unit-to-factor conversion table (spec §4.3).
type ExtractorConfig struct {
	AttributePattern string             `yaml:"attribute_pattern"`
	EntityType       string             `yaml:"entity_type"`
	Patterns         []string           `yaml:"patterns"`
	TargetUnit       string             `yaml:"target_unit"`
	UnitFactors      map[string]float64 `yaml:"unit_factors,omitempty"`
}

// ExtractorRegistry is a lookup of ExtractorConfig by attribute pattern.
type ExtractorRegistry struct {
	byPattern map[string]*ExtractorConfig
}

// NewExtractorRegistry builds a registry from a merged pattern map.
func NewExtractorRegistry(patterns map[string]*ExtractorConfig) *ExtractorRegistry {
	return &ExtractorRegistry{byPattern: patterns}
}

// Get returns the extractor for the given attribute pattern.
func (r *ExtractorRegistry) Get(attributePattern string) (*ExtractorConfig, error) {
	e, ok := r.byPattern[attributePattern]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExtractorNotFound, attributePattern)
	}
	return e, nil
}

// Has reports whether an extractor is registered for attributePattern.
func (r *ExtractorRegistry) Has(attributePattern string) bool {
	_, ok := r.byPattern[attributePattern]
	return ok
}

// GetAll returns every registered extractor, keyed by attribute pattern.
func (r *ExtractorRegistry) GetAll() map[string]*ExtractorConfig {
	return r.byPattern
}

// DerivationRuleConfig specifies how a Deriver promotes a raw claim into a
// derived claim bound to a domain field (spec §4.5).
type DerivationRuleConfig struct {
	ID               string            `yaml:"id"`
	EntityType       string            `yaml:"entity_type"`
	SourceAttribute  string            `yaml:"source_attribute"`
	TargetField      string            `yaml:"target_field"`
	ScopeFilter      map[string]string `yaml:"scope_filter,omitempty"`
	Aggregation      AggregationType   `yaml:"aggregation"`
	MinTruthRaw      *float64          `yaml:"min_truth_raw,omitempty"`
}

// DerivationRuleRegistry is a lookup of DerivationRuleConfig by rule id.
type DerivationRuleRegistry struct {
	byID map[string]*DerivationRuleConfig
}

// NewDerivationRuleRegistry builds a registry from a merged rule map.
func NewDerivationRuleRegistry(rules map[string]*DerivationRuleConfig) *DerivationRuleRegistry {
	return &DerivationRuleRegistry{byID: rules}
}

// Get returns the derivation rule with the given id.
func (r *DerivationRuleRegistry) Get(id string) (*DerivationRuleConfig, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDerivationRuleNotFound, id)
	}
	return d, nil
}

// GetAll returns every registered derivation rule, keyed by id.
func (r *DerivationRuleRegistry) GetAll() map[string]*DerivationRuleConfig {
	return r.byID
}

// ForEntityType returns rules applicable to the given entity type.
func (r *DerivationRuleRegistry) ForEntityType(entityType string) []*DerivationRuleConfig {
	var out []*DerivationRuleConfig
	for _, rule := range r.byID {
		if rule.EntityType == entityType {
			out = append(out, rule)
		}
	}
	return out
}
