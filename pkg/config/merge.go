package config

// mergeExtractors merges built-in and user-defined extractor configurations.
// User-defined extractors override built-in ones with the same attribute
// pattern, matching the override-by-key idiom used throughout this package.
func mergeExtractors(builtin map[string]*ExtractorConfig, user map[string]ExtractorConfig) map[string]*ExtractorConfig {
	result := make(map[string]*ExtractorConfig)

	for pattern, extractor := range builtin {
		extractorCopy := *extractor
		unitFactorsCopy := make(map[string]float64, len(extractor.UnitFactors))
		for k, v := range extractor.UnitFactors {
			unitFactorsCopy[k] = v
		}
		extractorCopy.UnitFactors = unitFactorsCopy
		patternsCopy := make([]string, len(extractor.Patterns))
		copy(patternsCopy, extractor.Patterns)
		extractorCopy.Patterns = patternsCopy
		result[pattern] = &extractorCopy
	}

	for pattern, userExtractor := range user {
		extractorCopy := userExtractor
		if extractorCopy.AttributePattern == "" {
			extractorCopy.AttributePattern = pattern
		}
		result[pattern] = &extractorCopy
	}

	return result
}

// mergeDerivationRules merges built-in and user-defined derivation rules.
// User-defined rules override built-in ones with the same id.
func mergeDerivationRules(builtin map[string]*DerivationRuleConfig, user map[string]DerivationRuleConfig) map[string]*DerivationRuleConfig {
	result := make(map[string]*DerivationRuleConfig)

	for id, rule := range builtin {
		ruleCopy := *rule
		result[id] = &ruleCopy
	}

	for id, userRule := range user {
		ruleCopy := userRule
		if ruleCopy.ID == "" {
			ruleCopy.ID = id
		}
		result[id] = &ruleCopy
	}

	return result
}
