package config

import (
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	redisclient "github.com/vietddude/sentinel/internal/infra/redis"
	"github.com/vietddude/sentinel/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Environment   string              `yaml:"environment"` // production, staging, development
	Logging       LoggingConfig       `yaml:"logging"`
	Redis         redisclient.Config  `yaml:"redis"`
	Database      postgres.Config     `yaml:"database"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Classifier    ClassifierConfig    `yaml:"classifier"`
	Resolution    ResolutionConfig    `yaml:"resolution"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Notify        NotifyConfig        `yaml:"notify"`
}

// ServerConfig holds HTTP server settings for health/metrics.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// IngestConfig holds telemetry polling settings.
type IngestConfig struct {
	// URL of the monitoring backend; empty together with EventsFile set
	// runs against a fixed file batch.
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	EventsFile   string        `yaml:"events_file"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

// ClassifierConfig holds classification thresholds and rule overrides.
type ClassifierConfig struct {
	RulesPath              string        `yaml:"rules_path"` // optional extra rules file
	CriticalCountThreshold int           `yaml:"critical_count_threshold"`
	TrendWindow            time.Duration `yaml:"trend_window"`
	TrendBuckets           int           `yaml:"trend_buckets"`
	TrendTolerance         float64       `yaml:"trend_tolerance"` // e.g. 0.2 = 20% delta
}

// ResolutionConfig holds auto-remediation gates.
type ResolutionConfig struct {
	Enabled bool `yaml:"enabled"`
	// ConfidenceThresholds maps environment -> minimum classification
	// confidence for an automatic resolution attempt.
	ConfidenceThresholds map[string]float64 `yaml:"confidence_thresholds"`
	// AllowedSafetyLevels maps environment -> safety levels the engine may
	// execute automatically.
	AllowedSafetyLevels map[string][]domain.SafetyLevel `yaml:"allowed_safety_levels"`
	StrategyTimeout     time.Duration                   `yaml:"strategy_timeout"`
	LockTTL             time.Duration                   `yaml:"lock_ttl"`

	// Adapter wiring for the built-in strategies.
	TokenRefreshURL string        `yaml:"token_refresh_url"` // auth remediation
	TempDirs        []string      `yaml:"temp_dirs"`         // disk remediation
	TempMaxAge      time.Duration `yaml:"temp_max_age"`
	DefaultService  string        `yaml:"default_service"` // service restart
}

// OrchestrationConfig holds decision-loop settings.
type OrchestrationConfig struct {
	CoolDownWindow time.Duration `yaml:"cool_down_window"`
	QueueSize      int           `yaml:"queue_size"`
	Workers        int           `yaml:"workers"`
	Retention      time.Duration `yaml:"retention"` // 0 = keep terminal incidents forever
}

// NotifyConfig holds notification delivery settings.
type NotifyConfig struct {
	WebhookURL   string        `yaml:"webhook_url"` // empty = log-only gateway
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	SendTimeout  time.Duration `yaml:"send_timeout"`
}

// ConfidenceThreshold returns the resolution-confidence cutoff for env,
// falling back to the production threshold for unknown environments.
func (r ResolutionConfig) ConfidenceThreshold(env string) float64 {
	if v, ok := r.ConfidenceThresholds[env]; ok {
		return v
	}
	return r.ConfidenceThresholds["production"]
}

// SafetyLevels returns the safety levels allowed for env.
func (r ResolutionConfig) SafetyLevels(env string) []domain.SafetyLevel {
	if v, ok := r.AllowedSafetyLevels[env]; ok {
		return v
	}
	return []domain.SafetyLevel{domain.SafetySafe}
}
