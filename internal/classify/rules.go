package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// Rule maps a set of message/tag patterns to a category with a base
// confidence. Rules are evaluated in declaration order; on equal
// confidence the earlier rule wins.
type Rule struct {
	Category       domain.Category `yaml:"category"`
	Patterns       []string        `yaml:"patterns"`
	BaseConfidence float64         `yaml:"base_confidence"`
	Actions        []string        `yaml:"actions"`
}

// DefaultRules returns the built-in rule set. Ordering matters: it is the
// deterministic tie-break for equal-confidence matches.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:       domain.CategoryDatabase,
			Patterns:       []string{"connection timeout to database", "database connection", "connection pool exhausted", "too many connections", "deadlock detected", "sqlstate"},
			BaseConfidence: 0.9,
			Actions:        []string{"check database connectivity", "recycle connection pool"},
		},
		{
			Category:       domain.CategoryMemory,
			Patterns:       []string{"out of memory", "memory limit", "oom killed", "heap alloc", "cannot allocate memory"},
			BaseConfidence: 0.85,
			Actions:        []string{"trigger garbage collection", "flush caches", "inspect for leaks"},
		},
		{
			Category:       domain.CategoryRateLimit,
			Patterns:       []string{"rate limit", "too many requests", "429", "quota exceeded", "throttled"},
			BaseConfidence: 0.85,
			Actions:        []string{"back off request rate", "review quota allocation"},
		},
		{
			Category:       domain.CategoryDisk,
			Patterns:       []string{"no space left on device", "disk full", "disk quota", "write failed: enospc"},
			BaseConfidence: 0.9,
			Actions:        []string{"clean temp files", "rotate logs"},
		},
		{
			Category:       domain.CategoryAuth,
			Patterns:       []string{"unauthorized", "token expired", "invalid credentials", "401", "403", "authentication failed"},
			BaseConfidence: 0.8,
			Actions:        []string{"refresh access token", "verify credentials"},
		},
		{
			Category:       domain.CategoryNetwork,
			Patterns:       []string{"connection refused", "dns lookup", "i/o timeout", "network unreachable", "tls handshake"},
			BaseConfidence: 0.7,
			Actions:        []string{"check upstream availability", "retry with backoff"},
		},
		{
			Category:       domain.CategoryService,
			Patterns:       []string{"service unavailable", "503", "panic:", "segmentation fault", "crashed"},
			BaseConfidence: 0.75,
			Actions:        []string{"restart service", "inspect crash logs"},
		},
		{
			Category:       domain.CategoryContent,
			Patterns:       []string{"validation failed", "invalid artifact", "checksum mismatch", "qa check failed", "malformed output"},
			BaseConfidence: 0.7,
			Actions:        []string{"regenerate artifact", "re-run validation"},
		},
	}
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads operator-defined rules from a YAML file and appends them
// after the built-in set. A missing path returns only the defaults.
func LoadRules(path string) ([]Rule, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	for _, r := range rf.Rules {
		if r.BaseConfidence < 0 || r.BaseConfidence > 1 {
			return nil, fmt.Errorf("rule for %q has confidence %v outside [0,1]", r.Category, r.BaseConfidence)
		}
	}
	return append(rules, rf.Rules...), nil
}
