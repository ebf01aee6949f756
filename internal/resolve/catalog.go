package resolve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// ErrStrategyNotFound is returned by Catalog.ByName for unknown names.
var ErrStrategyNotFound = errors.New("strategy not found")

// Catalog is the registry of resolution strategies. It is built once at
// startup and read-only afterwards, so reads need no locking.
type Catalog struct {
	strategies []Strategy
	byName     map[string]Strategy
	sealed     bool
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]Strategy)}
}

// Register adds a strategy. Registration happens during startup only;
// duplicate names and post-seal registration are programming errors.
func (c *Catalog) Register(s Strategy) error {
	if c.sealed {
		return fmt.Errorf("catalog is sealed, cannot register %q", s.Name())
	}
	if _, exists := c.byName[s.Name()]; exists {
		return fmt.Errorf("strategy %q already registered", s.Name())
	}
	if s.Confidence() < 0 || s.Confidence() > 1 {
		return fmt.Errorf("strategy %q confidence %v outside [0,1]", s.Name(), s.Confidence())
	}
	c.strategies = append(c.strategies, s)
	c.byName[s.Name()] = s
	return nil
}

// Seal marks the catalog read-only.
func (c *Catalog) Seal() { c.sealed = true }

// Len returns the number of registered strategies.
func (c *Catalog) Len() int { return len(c.strategies) }

// ByName looks a strategy up by its stable name.
func (c *Catalog) ByName(name string) (Strategy, error) {
	s, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}
	return s, nil
}

// ApplicableStrategies returns the strategies whose Validate accepts the
// event, in deterministic order: confidence descending, complexity
// ascending, then name ascending.
func (c *Catalog) ApplicableStrategies(event *domain.ErrorEvent, cl domain.Classification) []Strategy {
	var out []Strategy
	for _, s := range c.strategies {
		if s.Validate(event, cl) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence() != out[j].Confidence() {
			return out[i].Confidence() > out[j].Confidence()
		}
		if out[i].Complexity() != out[j].Complexity() {
			return out[i].Complexity() < out[j].Complexity()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}
