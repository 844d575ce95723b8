package config

// builtinConfig bundles the five canonical extractors and the baseline
// derivation rules shipped with the core (spec §4.3, §4.5). User-supplied
// YAML overrides or extends these by id/attribute pattern via the merge
// functions in merge.go.
type builtinConfig struct {
	Extractors      map[string]*ExtractorConfig
	DerivationRules map[string]*DerivationRuleConfig
}

// GetBuiltinConfig returns the core's five canonical attribute extractors
// (ISP seconds, thrust newtons, mass kg, chamber pressure bar,
// payload-to-LEO kg) and their default derivation rules into
// domain_default_v1 scope.
func GetBuiltinConfig() *builtinConfig {
	return &builtinConfig{
		Extractors: map[string]*ExtractorConfig{
			"engines.isp_s": {
				AttributePattern: "engines.isp_s",
				EntityType:       "engine",
				Patterns: []string{
					`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:seconds?|s)\s*(?:of\s+)?(?:specific\s+impulse|isp)`,
					`(?i)isp[^\d]{0,10}(\d[\d,]*(?:\.\d+)?)\s*(s|sec|seconds?)?`,
				},
				TargetUnit:  "s",
				UnitFactors: map[string]float64{"s": 1, "sec": 1, "seconds": 1},
			},
			"engines.thrust_n": {
				AttributePattern: "engines.thrust_n",
				EntityType:       "engine",
				Patterns: []string{
					`(?i)(\d[\d,]*(?:\.\d+)?)\s*(n|kn|mn|lbf|klbf)\s+(?:of\s+)?thrust`,
					`(?i)thrust[^\d]{0,10}(\d[\d,]*(?:\.\d+)?)\s*(n|kn|mn|lbf|klbf)?`,
				},
				TargetUnit: "n",
				UnitFactors: map[string]float64{
					"n": 1, "kn": 1000, "mn": 1e6, "lbf": 4.44822, "klbf": 4448.22,
				},
			},
			"engines.mass_kg": {
				AttributePattern: "engines.mass_kg",
				EntityType:       "engine",
				Patterns: []string{
					`(?i)(\d[\d,]*(?:\.\d+)?)\s*(kg|kilograms?|t|tonnes?|lb|lbs|pounds?)\s+(?:dry\s+)?mass`,
					`(?i)mass[^\d]{0,10}(\d[\d,]*(?:\.\d+)?)\s*(kg|kilograms?|t|tonnes?|lb|lbs|pounds?)?`,
				},
				TargetUnit: "kg",
				UnitFactors: map[string]float64{
					"kg": 1, "kilograms": 1, "kilogram": 1,
					"t": 1000, "tonnes": 1000, "tonne": 1000,
					"lb": 0.453592, "lbs": 0.453592, "pounds": 0.453592, "pound": 0.453592,
				},
			},
			"engines.chamber_pressure_bar": {
				AttributePattern: "engines.chamber_pressure_bar",
				EntityType:       "engine",
				Patterns: []string{
					`(?i)(\d[\d,]*(?:\.\d+)?)\s*(bar|mpa|psi)\s+(?:chamber\s+)?pressure`,
					`(?i)chamber\s+pressure[^\d]{0,10}(\d[\d,]*(?:\.\d+)?)\s*(bar|mpa|psi)?`,
				},
				TargetUnit: "bar",
				UnitFactors: map[string]float64{
					"bar": 1, "mpa": 10, "psi": 0.0689476,
				},
			},
			"launch_vehicles.payload_to_leo_kg": {
				AttributePattern: "launch_vehicles.payload_to_leo_kg",
				EntityType:       "launch_vehicle",
				Patterns: []string{
					`(?i)(\d[\d,]*(?:\.\d+)?)\s*(kg|t|tonnes?|lb|lbs)\s+(?:to|payload to)\s+(?:leo|low earth orbit)`,
					`(?i)payload\s+to\s+leo[^\d]{0,10}(\d[\d,]*(?:\.\d+)?)\s*(kg|t|tonnes?|lb|lbs)?`,
				},
				TargetUnit: "kg",
				UnitFactors: map[string]float64{
					"kg": 1, "t": 1000, "tonnes": 1000, "tonne": 1000,
					"lb": 0.453592, "lbs": 0.453592,
				},
			},
		},
		DerivationRules: map[string]*DerivationRuleConfig{
			"engines.isp_s.vac": {
				ID:              "engines.isp_s.vac",
				EntityType:      "engine",
				SourceAttribute: "engines.isp_s",
				TargetField:     "engines.isp_s",
				ScopeFilter:     map[string]string{"altitude": "vac"},
				Aggregation:     AggregationBestSupported,
				MinTruthRaw:     floatPtr(0.5),
			},
			"engines.thrust_n.sl": {
				ID:              "engines.thrust_n.sl",
				EntityType:      "engine",
				SourceAttribute: "engines.thrust_n",
				TargetField:     "engines.thrust_n",
				ScopeFilter:     map[string]string{"altitude": "sl"},
				Aggregation:     AggregationBestSupported,
				MinTruthRaw:     floatPtr(0.5),
			},
			"engines.mass_kg": {
				ID:              "engines.mass_kg",
				EntityType:      "engine",
				SourceAttribute: "engines.mass_kg",
				TargetField:     "engines.mass_kg",
				Aggregation:     AggregationBestSupported,
			},
			"engines.chamber_pressure_bar": {
				ID:              "engines.chamber_pressure_bar",
				EntityType:      "engine",
				SourceAttribute: "engines.chamber_pressure_bar",
				TargetField:     "engines.chamber_pressure_bar",
				Aggregation:     AggregationBestSupported,
			},
			"launch_vehicles.payload_to_leo_kg": {
				ID:              "launch_vehicles.payload_to_leo_kg",
				EntityType:      "launch_vehicle",
				SourceAttribute: "launch_vehicles.payload_to_leo_kg",
				TargetField:     "launch_vehicles.payload_to_leo_kg",
				Aggregation:     AggregationMax,
			},
		},
	}
}

func floatPtr(f float64) *float64 { return &f }
