// Package strategies contains the built-in resolution strategies and the
// action adapters they execute against.
package strategies

import "github.com/vietddude/sentinel/internal/core/domain"

// meta carries the static self-description every strategy embeds.
type meta struct {
	name       string
	confidence float64
	safety     domain.SafetyLevel
	complexity int
}

func (m meta) Name() string                    { return m.name }
func (m meta) Confidence() float64             { return m.confidence }
func (m meta) SafetyLevel() domain.SafetyLevel { return m.safety }
func (m meta) Complexity() int                 { return m.complexity }
