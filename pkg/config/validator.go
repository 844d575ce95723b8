package config

import (
	"fmt"
	"regexp"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error). Order: database → job → feed → scorer → resolver →
// extractors → derivation rules, mirroring dependency order.
func (v *Validator) ValidateAll() error {
	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := v.validateJob(); err != nil {
		return fmt.Errorf("job validation failed: %w", err)
	}
	if err := v.validateFeed(); err != nil {
		return fmt.Errorf("feed validation failed: %w", err)
	}
	if err := v.validateScorer(); err != nil {
		return fmt.Errorf("scorer validation failed: %w", err)
	}
	if err := v.validateResolver(); err != nil {
		return fmt.Errorf("resolver validation failed: %w", err)
	}
	if err := v.validateExtractors(); err != nil {
		return fmt.Errorf("extractor validation failed: %w", err)
	}
	if err := v.validateDerivationRules(); err != nil {
		return fmt.Errorf("derivation rule validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	d := v.cfg.Database
	if d == nil {
		return fmt.Errorf("database configuration is nil")
	}
	if d.URL == "" && d.Host == "" {
		return fmt.Errorf("either url or host must be set")
	}
	if d.MaxOpenConns < 1 {
		return fmt.Errorf("max_open_conns must be at least 1, got %d", d.MaxOpenConns)
	}
	if d.MaxIdleConns < 0 || d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("max_idle_conns must be between 0 and max_open_conns, got %d", d.MaxIdleConns)
	}
	return nil
}

func (v *Validator) validateJob() error {
	j := v.cfg.Job
	if j == nil {
		return fmt.Errorf("job configuration is nil")
	}
	if j.IngestTimeout <= 0 {
		return fmt.Errorf("ingest_timeout must be positive, got %v", j.IngestTimeout)
	}
	if j.URLIngestTimeout <= 0 {
		return fmt.Errorf("url_ingest_timeout must be positive, got %v", j.URLIngestTimeout)
	}
	if j.ExtractLimit < 1 {
		return fmt.Errorf("extract_limit must be at least 1, got %d", j.ExtractLimit)
	}
	if j.ConflictLimit < 1 {
		return fmt.Errorf("conflict_limit must be at least 1, got %d", j.ConflictLimit)
	}
	if j.ScoreLimit < 1 {
		return fmt.Errorf("score_limit must be at least 1, got %d", j.ScoreLimit)
	}
	if j.JobTimeoutHours <= 0 {
		return fmt.Errorf("job_timeout_hours must be positive, got %v", j.JobTimeoutHours)
	}
	if j.ReaperInterval <= 0 {
		return fmt.Errorf("reaper_interval must be positive, got %v", j.ReaperInterval)
	}
	return nil
}

func (v *Validator) validateFeed() error {
	f := v.cfg.Feed
	if f == nil {
		return fmt.Errorf("feed configuration is nil")
	}
	if f.MaxItems < 1 {
		return fmt.Errorf("max_items must be at least 1, got %d", f.MaxItems)
	}
	return nil
}

func (v *Validator) validateScorer() error {
	s := v.cfg.Scorer
	if s == nil {
		return fmt.Errorf("scorer configuration is nil")
	}
	if s.LowQualityCapRatio < 0 || s.LowQualityCapRatio > 1 {
		return NewValidationError("scorer_policy", "", "low_quality_cap_ratio", fmt.Errorf("must be in [0,1]"))
	}
	if s.Prior < 0 {
		return NewValidationError("scorer_policy", "", "prior", fmt.Errorf("must be non-negative"))
	}
	if s.RecencyHalfLifeDays <= 0 {
		return NewValidationError("scorer_policy", "", "recency_half_life_days", fmt.Errorf("must be positive"))
	}
	if s.RecencyFloor < 0 || s.RecencyFloor > 1 {
		return NewValidationError("scorer_policy", "", "recency_floor", fmt.Errorf("must be in [0,1]"))
	}
	if _, ok := s.DocTypeMultiplier["other"]; !ok {
		return NewValidationError("scorer_policy", "", "doc_type_multiplier", fmt.Errorf("must define an 'other' fallback multiplier"))
	}
	return nil
}

func (v *Validator) validateResolver() error {
	r := v.cfg.Resolver
	if r == nil {
		return fmt.Errorf("resolver configuration is nil")
	}
	// The gate table must be monotone across the slider: assertive gates
	// relax relative to conservative gates (spec §4.7).
	if r.Assertive.MinTruth > r.Conservative.MinTruth {
		return NewValidationError("resolver_policy", "", "min_truth", fmt.Errorf("assertive min_truth must not exceed conservative min_truth"))
	}
	if r.Assertive.MinIndependentSources > r.Conservative.MinIndependentSources {
		return NewValidationError("resolver_policy", "", "min_independent_sources", fmt.Errorf("assertive min_independent_sources must not exceed conservative"))
	}
	if r.Assertive.MaxAllowedContradiction < r.Conservative.MaxAllowedContradiction {
		return NewValidationError("resolver_policy", "", "max_allowed_contradiction", fmt.Errorf("assertive max_allowed_contradiction must not be smaller than conservative"))
	}
	if r.Assertive.TieMargin > r.Conservative.TieMargin {
		return NewValidationError("resolver_policy", "", "tie_margin", fmt.Errorf("assertive tie_margin must not exceed conservative"))
	}
	return nil
}

func (v *Validator) validateExtractors() error {
	for pattern, extractor := range v.cfg.ExtractorRegistry.GetAll() {
		if extractor.AttributePattern == "" {
			return NewValidationError("extractor", pattern, "attribute_pattern", ErrMissingRequiredField)
		}
		if extractor.EntityType == "" {
			return NewValidationError("extractor", pattern, "entity_type", ErrMissingRequiredField)
		}
		if len(extractor.Patterns) == 0 {
			return NewValidationError("extractor", pattern, "patterns", fmt.Errorf("at least one regular expression required"))
		}
		for i, re := range extractor.Patterns {
			if _, err := regexp.Compile(re); err != nil {
				return NewValidationError("extractor", pattern, fmt.Sprintf("patterns[%d]", i), err)
			}
		}
		if extractor.TargetUnit == "" {
			return NewValidationError("extractor", pattern, "target_unit", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateDerivationRules() error {
	for id, rule := range v.cfg.DerivationRuleRegistry.GetAll() {
		if rule.SourceAttribute == "" {
			return NewValidationError("derivation_rule", id, "source_attribute", ErrMissingRequiredField)
		}
		if rule.TargetField == "" {
			return NewValidationError("derivation_rule", id, "target_field", ErrMissingRequiredField)
		}
		if !rule.Aggregation.IsValid() {
			return NewValidationError("derivation_rule", id, "aggregation", fmt.Errorf("invalid aggregation: %s", rule.Aggregation))
		}
		if rule.MinTruthRaw != nil && (*rule.MinTruthRaw < 0 || *rule.MinTruthRaw > 1) {
			return NewValidationError("derivation_rule", id, "min_truth_raw", fmt.Errorf("must be in [0,1]"))
		}
	}
	return nil
}
