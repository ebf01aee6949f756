// Package classify turns raw error events into categorized, confidence
// scored classifications and computes category-level trends.
package classify

import (
	"log/slog"
	"strings"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// Config holds the thresholds the classifier consults.
type Config struct {
	CriticalCountThreshold int
}

// Classifier evaluates an ordered weighted rule set against error events.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []Rule
	cfg   Config
	log   *slog.Logger
}

// New creates a Classifier over the given rules.
func New(rules []Rule, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CriticalCountThreshold <= 0 {
		cfg.CriticalCountThreshold = 50
	}
	return &Classifier{rules: rules, cfg: cfg, log: logger}
}

// Classify never fails: absence of evidence yields a zero-confidence
// unknown classification rather than an error.
func (c *Classifier) Classify(event *domain.ErrorEvent) domain.Classification {
	msg := strings.ToLower(strings.TrimSpace(event.Message))
	if msg == "" && len(event.Tags) == 0 && len(event.Context) == 0 {
		return domain.Unclassified()
	}

	var best *Rule
	for i := range c.rules {
		rule := &c.rules[i]
		if !ruleMatches(rule, msg, event) {
			continue
		}
		// Strictly greater keeps the first-declared rule on ties.
		if best == nil || rule.BaseConfidence > best.BaseConfidence {
			best = rule
		}
	}
	if best == nil {
		return domain.Unclassified()
	}

	confidence := best.BaseConfidence
	if event.IsProduction() {
		confidence += 0.1
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	cl := domain.Classification{
		Category:         best.Category,
		Confidence:       confidence,
		SuggestedActions: append([]string(nil), best.Actions...),
	}
	cl.Urgency = c.urgency(best.Category, event)
	cl.Impact = c.impact(best.Category, event)
	return cl
}

func ruleMatches(rule *Rule, normalizedMsg string, event *domain.ErrorEvent) bool {
	for _, p := range rule.Patterns {
		p = strings.ToLower(p)
		if normalizedMsg != "" && strings.Contains(normalizedMsg, p) {
			return true
		}
		for _, v := range event.Tags {
			if strings.Contains(strings.ToLower(v), p) {
				return true
			}
		}
		for _, v := range event.Context {
			if strings.Contains(strings.ToLower(v), p) {
				return true
			}
		}
	}
	return false
}

// urgency derives resolution urgency from category, level and recurrence.
func (c *Classifier) urgency(cat domain.Category, event *domain.ErrorEvent) domain.Urgency {
	critical := event.IsCritical(c.cfg.CriticalCountThreshold)

	switch event.Level {
	case domain.LevelFatal:
		return domain.UrgencyCritical
	case domain.LevelError:
		if critical {
			return domain.UrgencyCritical
		}
		switch cat {
		case domain.CategoryDatabase, domain.CategoryDisk, domain.CategoryService:
			return domain.UrgencyHigh
		case domain.CategoryMemory, domain.CategoryAuth:
			return domain.UrgencyMedium
		default:
			return domain.UrgencyMedium
		}
	case domain.LevelWarning:
		if critical {
			return domain.UrgencyHigh
		}
		return domain.UrgencyLow
	default:
		return domain.UrgencyLow
	}
}

// impact derives business impact from environment, category and volume.
func (c *Classifier) impact(cat domain.Category, event *domain.ErrorEvent) domain.Impact {
	if !event.IsProduction() {
		return domain.ImpactLow
	}
	if event.IsCritical(c.cfg.CriticalCountThreshold) {
		return domain.ImpactCritical
	}
	switch cat {
	case domain.CategoryDatabase, domain.CategoryDisk:
		return domain.ImpactHigh
	case domain.CategoryAuth, domain.CategoryService, domain.CategoryMemory:
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}
