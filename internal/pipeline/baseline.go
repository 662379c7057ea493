package pipeline

import (
	"context"
	"fmt"

	"patternbank/internal/cache"
	"patternbank/internal/pattern"
)

// StaticDiscoverer satisfies Discoverer with a fixed profile. Used when the
// caller already knows the application shape, and by tests.
type StaticDiscoverer struct {
	Profile Profile
}

func (s StaticDiscoverer) Discover(_ context.Context, workspace string, _ []string, _ *cache.Cache) (*Profile, error) {
	p := s.Profile
	if p.Workspace == "" {
		p.Workspace = workspace
	}
	return &p, nil
}

// DefaultBaseline generates the universal starter patterns every web
// application gets regardless of what mining finds. Confidence is left at
// zero; the strong-tier floor supplies it.
type DefaultBaseline struct{}

func (DefaultBaseline) Generate(_ context.Context, profile *Profile) ([]pattern.Discovered, error) {
	type seed struct {
		text string
		prim pattern.Primitive
	}
	seeds := []seed{
		{"click the save button", pattern.Click},
		{"click the cancel button", pattern.Click},
		{"click the submit button", pattern.Click},
		{"navigate to the home page", pattern.Navigate},
		{"wait for the page to load", pattern.Wait},
		{"assert the page title is visible", pattern.Assert},
	}
	for _, fw := range profile.Frameworks {
		seeds = append(seeds,
			seed{fmt.Sprintf("wait for the %s app to hydrate", fw), pattern.Wait})
	}

	out := make([]pattern.Discovered, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, pattern.New(s.text, s.prim, 0, pattern.SourceBaseline))
	}
	return out, nil
}
