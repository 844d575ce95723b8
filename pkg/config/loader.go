package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// truthLedgerYAMLConfig represents the complete truthledger.yaml file structure.
type truthLedgerYAMLConfig struct {
	Database        *DatabaseConfig                `yaml:"database"`
	Job             *JobConfig                      `yaml:"job"`
	Feed            *FeedConfig                     `yaml:"feed"`
	HTTP            *HTTPConfig                     `yaml:"http"`
	Scorer          *ScorerPolicy                   `yaml:"scorer"`
	Resolver        *ResolverPolicy                 `yaml:"resolver"`
	Extractors      map[string]ExtractorConfig      `yaml:"extractors"`
	DerivationRules map[string]DerivationRuleConfig `yaml:"derivation_rules"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load truthledger.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined extractors and derivation rules
//  5. Merge user-supplied policy structs over built-in defaults
//  6. Build in-memory registries
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"extractors", stats.Extractors,
		"derivation_rules", stats.DerivationRules)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadTruthLedgerYAML()
	if err != nil {
		return nil, err
	}

	builtin := GetBuiltinConfig()

	extractors := mergeExtractors(builtin.Extractors, yamlCfg.Extractors)
	derivationRules := mergeDerivationRules(builtin.DerivationRules, yamlCfg.DerivationRules)

	database := DefaultDatabaseConfig()
	if yamlCfg.Database != nil {
		if err := mergo.Merge(database, yamlCfg.Database, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge database config: %w", err)
		}
	}

	job := DefaultJobConfig()
	if yamlCfg.Job != nil {
		if err := mergo.Merge(job, yamlCfg.Job, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge job config: %w", err)
		}
	}

	feed := DefaultFeedConfig()
	if yamlCfg.Feed != nil {
		if err := mergo.Merge(feed, yamlCfg.Feed, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge feed config: %w", err)
		}
	}

	httpCfg := DefaultHTTPConfig()
	if yamlCfg.HTTP != nil {
		if err := mergo.Merge(httpCfg, yamlCfg.HTTP, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge http config: %w", err)
		}
	}

	scorer := DefaultScorerPolicy()
	if yamlCfg.Scorer != nil {
		if err := mergo.Merge(scorer, yamlCfg.Scorer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scorer policy: %w", err)
		}
	}

	resolver := DefaultResolverPolicy()
	if yamlCfg.Resolver != nil {
		if err := mergo.Merge(resolver, yamlCfg.Resolver, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge resolver policy: %w", err)
		}
	}

	return &Config{
		configDir:              configDir,
		Database:               database,
		Job:                    job,
		Feed:                   feed,
		HTTP:                   httpCfg,
		Scorer:                 scorer,
		Resolver:               resolver,
		ExtractorRegistry:      NewExtractorRegistry(extractors),
		DerivationRuleRegistry: NewDerivationRuleRegistry(derivationRules),
	}, nil
}

func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadTruthLedgerYAML() (*truthLedgerYAMLConfig, error) {
	var cfg truthLedgerYAMLConfig
	cfg.Extractors = make(map[string]ExtractorConfig)
	cfg.DerivationRules = make(map[string]DerivationRuleConfig)

	if err := l.loadYAML("truthledger.yaml", &cfg); err != nil {
		return nil, NewLoadError("truthledger.yaml", err)
	}

	return &cfg, nil
}
