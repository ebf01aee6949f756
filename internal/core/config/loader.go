package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Ingest.PollInterval == 0 {
		cfg.Ingest.PollInterval = 30 * time.Second
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 100
	}
	if cfg.Classifier.CriticalCountThreshold == 0 {
		cfg.Classifier.CriticalCountThreshold = 50
	}
	if cfg.Classifier.TrendWindow == 0 {
		cfg.Classifier.TrendWindow = time.Hour
	}
	if cfg.Classifier.TrendBuckets == 0 {
		cfg.Classifier.TrendBuckets = 6
	}
	if cfg.Classifier.TrendTolerance == 0 {
		cfg.Classifier.TrendTolerance = 0.2
	}
	if cfg.Resolution.ConfidenceThresholds == nil {
		cfg.Resolution.ConfidenceThresholds = map[string]float64{
			"production":  0.8,
			"staging":     0.6,
			"development": 0.5,
		}
	}
	if cfg.Resolution.AllowedSafetyLevels == nil {
		cfg.Resolution.AllowedSafetyLevels = map[string][]domain.SafetyLevel{
			"production":  {domain.SafetySafe, domain.SafetyMedium},
			"staging":     {domain.SafetySafe, domain.SafetyMedium, domain.SafetyUnsafe},
			"development": {domain.SafetySafe, domain.SafetyMedium, domain.SafetyUnsafe},
		}
	}
	if cfg.Resolution.StrategyTimeout == 0 {
		cfg.Resolution.StrategyTimeout = 30 * time.Second
	}
	if cfg.Resolution.LockTTL == 0 {
		cfg.Resolution.LockTTL = 2 * time.Minute
	}
	if cfg.Orchestration.CoolDownWindow == 0 {
		cfg.Orchestration.CoolDownWindow = 15 * time.Minute
	}
	if cfg.Orchestration.QueueSize == 0 {
		cfg.Orchestration.QueueSize = 256
	}
	if cfg.Orchestration.Workers == 0 {
		cfg.Orchestration.Workers = 4
	}
	if cfg.Notify.MaxRetries == 0 {
		cfg.Notify.MaxRetries = 5
	}
	if cfg.Notify.InitialDelay == 0 {
		cfg.Notify.InitialDelay = 2 * time.Second
	}
	if cfg.Notify.MaxDelay == 0 {
		cfg.Notify.MaxDelay = 60 * time.Second
	}
	if cfg.Notify.SendTimeout == 0 {
		cfg.Notify.SendTimeout = 10 * time.Second
	}
}

// Validate rejects configurations the running loop could not honour.
// Validation failures are fatal at startup only.
func (cfg *AppConfig) Validate() error {
	for env, v := range cfg.Resolution.ConfidenceThresholds {
		if v < 0 || v > 1 {
			return fmt.Errorf("invalid config: confidence threshold for %q must be in [0,1], got %v", env, v)
		}
	}
	for env, levels := range cfg.Resolution.AllowedSafetyLevels {
		for _, l := range levels {
			switch l {
			case domain.SafetySafe, domain.SafetyMedium, domain.SafetyUnsafe:
			default:
				return fmt.Errorf("invalid config: unknown safety level %q for %q", l, env)
			}
		}
	}
	if cfg.Classifier.TrendTolerance < 0 {
		return fmt.Errorf("invalid config: trend tolerance must be >= 0")
	}
	if cfg.Orchestration.QueueSize < 1 {
		return fmt.Errorf("invalid config: queue size must be >= 1")
	}
	return nil
}
