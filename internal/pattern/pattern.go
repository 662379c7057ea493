// Package pattern defines the data model for curated test interaction
// patterns: the unit of knowledge this tool mines, scores, and persists.
package pattern

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Primitive is the action kind a pattern maps to.
type Primitive string

const (
	Click    Primitive = "click"
	Fill     Primitive = "fill"
	Navigate Primitive = "navigate"
	Assert   Primitive = "assert"
	Wait     Primitive = "wait"
	Hover    Primitive = "hover"
	Select   Primitive = "select"
)

// SelectorHint suggests one way to locate the UI element a pattern acts on.
type SelectorHint struct {
	Strategy   string  `json:"strategy"` // testid, role, label, css, text
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Discovered is one curated pattern candidate. Records are plain tagged data;
// the quality pipeline and the learning loop are the only mutators.
type Discovered struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Normalized string         `json:"normalized"`
	Primitive  Primitive      `json:"primitive"`
	Selectors  []SelectorHint `json:"selectors,omitempty"`
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source"`

	Successes int       `json:"successes"`
	Failures  int       `json:"failures"`
	LastUsed  time.Time `json:"last_used,omitzero"`

	// Lineage for cross-source diversity scoring.
	Entity         string   `json:"entity,omitempty"`
	TemplateSource string   `json:"template_source,omitempty"`
	Journeys       []string `json:"journeys,omitempty"`
}

// New builds a pattern with a fresh ID, normalized text, and confidence
// clamped to [0,1].
func New(text string, prim Primitive, confidence float64, source string) Discovered {
	return Discovered{
		ID:         uuid.NewString(),
		Text:       text,
		Normalized: Normalize(text),
		Primitive:  prim,
		Confidence: Clamp(confidence),
		Source:     source,
	}
}

// Normalize lower-cases text and collapses internal whitespace so that
// "Click  Save" and "click save" group together.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Clamp bounds a confidence score to [0,1].
func Clamp(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Attempted reports whether the pattern has ever been exercised by the
// learning loop.
func (d Discovered) Attempted() bool {
	return d.Successes+d.Failures > 0
}
