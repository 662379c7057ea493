// Package pipeline sequences the mining phases of one run: discovery,
// baseline generation, code-element mining, framework packs, auxiliary
// miners, quality control, and persistence. Each phase is fault-isolated;
// the run always returns a usable, possibly partial, result.
package pipeline

import (
	"context"

	"patternbank/internal/cache"
	"patternbank/internal/pattern"
)

// Profile describes what structural discovery learned about the target
// application. Later phases consume it; a missing profile skips them.
type Profile struct {
	Workspace           string            `json:"workspace"`
	Frameworks          []string          `json:"frameworks,omitempty"`
	UILibraries         []string          `json:"ui_libraries,omitempty"`
	AuthHints           map[string]string `json:"auth_hints,omitempty"`
	SelectorConventions []string          `json:"selector_conventions,omitempty"`
}

// Discoverer produces the application profile from the scanned file set.
// External collaborator: the core consumes only its output shape.
type Discoverer interface {
	Discover(ctx context.Context, workspace string, files []string, c *cache.Cache) (*Profile, error)
}

// BaselineGenerator derives the universal starter patterns from a profile.
type BaselineGenerator interface {
	Generate(ctx context.Context, profile *Profile) ([]pattern.Discovered, error)
}

// Miner extracts pattern candidates from source files, reading through the
// shared content cache. Source is the provenance tag stamped on its output.
type Miner interface {
	Name() string
	Source() string
	Mine(ctx context.Context, files []string, c *cache.Cache, profile *Profile) ([]pattern.Discovered, error)
}

// PackLoader supplies curated pattern packs for a detected framework or UI
// library.
type PackLoader interface {
	Load(ctx context.Context, framework string) ([]pattern.Discovered, error)
}

// Collaborators bundles the external producers one run consumes. Any nil
// member skips its phase with a warning.
type Collaborators struct {
	Discoverer Discoverer
	Baseline   BaselineGenerator
	CodeMiner  Miner
	Packs      PackLoader
	Auxiliary  []Miner
}
