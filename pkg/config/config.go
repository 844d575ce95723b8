package config

// Config is the umbrella configuration object encapsulating every policy
// table and registry the pipeline stages read from. It is the primary
// object returned by Initialize() and threaded through the application.
type Config struct {
	configDir string

	Database *DatabaseConfig
	Job      *JobConfig
	Feed     *FeedConfig
	HTTP     *HTTPConfig
	Scorer   *ScorerPolicy
	Resolver *ResolverPolicy

	ExtractorRegistry      *ExtractorRegistry
	DerivationRuleRegistry *DerivationRuleRegistry
}

// ConfigStats contains statistics about loaded configuration, useful for
// startup logging.
type ConfigStats struct {
	Extractors      int
	DerivationRules int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		Extractors:      len(c.ExtractorRegistry.GetAll()),
		DerivationRules: len(c.DerivationRuleRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetExtractor retrieves an extractor configuration by attribute pattern.
func (c *Config) GetExtractor(attributePattern string) (*ExtractorConfig, error) {
	return c.ExtractorRegistry.Get(attributePattern)
}

// GetDerivationRule retrieves a derivation rule configuration by id.
func (c *Config) GetDerivationRule(id string) (*DerivationRuleConfig, error) {
	return c.DerivationRuleRegistry.Get(id)
}
