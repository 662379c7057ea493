package quality

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patternbank/internal/pattern"
)

func mk(text string, prim pattern.Primitive, conf float64, source string) pattern.Discovered {
	return pattern.New(text, prim, conf, source)
}

func TestApplyTierRaisesToFloorOnly(t *testing.T) {
	in := []pattern.Discovered{
		mk("click save", pattern.Click, 0.30, pattern.SourceBaseline),     // strong: 0.85 floor
		mk("fill email", pattern.Fill, 0.50, pattern.SourceI18n),          // medium: 0.75 floor
		mk("open menu", pattern.Click, 0.95, pattern.SourceAnalytics),     // weak floor must not lower
		mk("wait spinner", pattern.Wait, 0.10, pattern.SourceFeatureFlags), // weak: 0.60 floor
	}
	out := ApplyTier(in)
	assert.Equal(t, 0.85, out[0].Confidence)
	assert.Equal(t, 0.75, out[1].Confidence)
	assert.Equal(t, 0.95, out[2].Confidence, "earned confidence is never lowered")
	assert.Equal(t, 0.60, out[3].Confidence)
}

func TestCrossSourceBoost(t *testing.T) {
	a := mk("click save", pattern.Click, 0.60, "a")
	a.TemplateSource = "crud-template"
	b := mk("click save", pattern.Click, 0.65, "b")
	b.TemplateSource = "journey-template"
	lone := mk("open menu", pattern.Click, 0.80, "a")
	lone.TemplateSource = "crud-template"
	capped := mk("click save", pattern.Click, 0.92, "c")
	capped.TemplateSource = "entity-template"

	out, boosted := boostCrossSource([]pattern.Discovered{a, b, lone, capped})
	assert.Equal(t, 3, boosted)
	assert.InDelta(t, 0.70, out[0].Confidence, 1e-9)
	assert.InDelta(t, 0.75, out[1].Confidence, 1e-9)
	assert.Equal(t, 0.80, out[2].Confidence, "single-provenance group is unchanged")
	assert.Equal(t, BoostCap, out[3].Confidence, "boost is capped")
}

func TestDedupeMerge(t *testing.T) {
	a := mk("Click Save", pattern.Click, 0.60, "a")
	a.Successes, a.Failures = 3, 1
	a.Journeys = []string{"checkout"}
	a.Selectors = []pattern.SelectorHint{
		{Strategy: "testid", Value: "save-btn", Confidence: 0.9},
		{Strategy: "text", Value: "Save", Confidence: 0.5},
	}
	b := mk("click save", pattern.Click, 0.65, "b")
	b.Successes, b.Failures = 2, 2
	b.Journeys = []string{"checkout", "settings"}
	b.Selectors = []pattern.SelectorHint{
		{Strategy: "text", Value: "Save", Confidence: 0.7}, // conflict: higher wins
		{Strategy: "role", Value: "button", Confidence: 0.6},
	}

	out, merged := dedupe([]pattern.Discovered{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 1, merged)

	got := out[0]
	assert.Equal(t, 0.65, got.Confidence, "maximum confidence wins")
	assert.Equal(t, 5, got.Successes)
	assert.Equal(t, 3, got.Failures)
	assert.Equal(t, "a", got.Source, "first-seen provenance tag is kept")
	assert.ElementsMatch(t, []string{"checkout", "settings"}, got.Journeys)

	wantSelectors := []pattern.SelectorHint{
		{Strategy: "testid", Value: "save-btn", Confidence: 0.9},
		{Strategy: "text", Value: "Save", Confidence: 0.7},
		{Strategy: "role", Value: "button", Confidence: 0.6},
	}
	if diff := cmp.Diff(wantSelectors, got.Selectors); diff != "" {
		t.Errorf("selector union mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupeKeysOnPrimitiveToo(t *testing.T) {
	a := mk("save", pattern.Click, 0.8, "a")
	b := mk("save", pattern.Assert, 0.8, "a")
	out, merged := dedupe([]pattern.Discovered{a, b})
	assert.Len(t, out, 2, "same text, different primitive must not merge")
	assert.Equal(t, 0, merged)
}

func TestThresholdPreservesOrder(t *testing.T) {
	in := []pattern.Discovered{
		mk("a", pattern.Click, 0.90, "x"),
		mk("b", pattern.Click, 0.50, "x"),
		mk("c", pattern.Click, 0.70, "x"),
		mk("d", pattern.Click, 0.69, "x"),
	}
	out, dropped := threshold(in, 0.70)
	assert.Equal(t, 2, dropped)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Text)
	assert.Equal(t, "c", out[1].Text)
}

func TestPruneRules(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	never := mk("never attempted", pattern.Click, 0.9, "x")
	never.LastUsed = now.AddDate(-2, 0, 0) // ancient but never attempted

	stale := mk("stale", pattern.Click, 0.9, "x")
	stale.Successes = 4
	stale.LastUsed = now.AddDate(0, 0, -100)

	fresh := mk("fresh", pattern.Click, 0.9, "x")
	fresh.Failures = 1
	fresh.LastUsed = now.AddDate(0, 0, -10)

	opts := Options{
		Usage:    &UsageStats{LastUsed: map[string]time.Time{}},
		PruneAge: 90 * 24 * time.Hour,
		Now:      now,
	}
	out, pruned := prune([]pattern.Discovered{never, stale, fresh}, opts)
	assert.Equal(t, 1, pruned)
	require.Len(t, out, 2)
	assert.Equal(t, "never attempted", out[0].Text)
	assert.Equal(t, "fresh", out[1].Text)
}

func TestPrunePrefersExternalUsageStats(t *testing.T) {
	now := time.Now()
	p := mk("pat", pattern.Click, 0.9, "x")
	p.Successes = 1
	p.LastUsed = now.AddDate(0, 0, -200)

	opts := Options{
		Usage:    &UsageStats{LastUsed: map[string]time.Time{p.ID: now.AddDate(0, 0, -5)}},
		PruneAge: DefaultPruneAge,
		Now:      now,
	}
	out, pruned := prune([]pattern.Discovered{p}, opts)
	assert.Equal(t, 0, pruned)
	assert.Len(t, out, 1, "external usage record overrides the embedded timestamp")
}

func TestCurateEndToEnd(t *testing.T) {
	p1 := mk("click save", pattern.Click, 0.60, "a")
	p2 := mk("click save", pattern.Click, 0.65, "b")
	p3 := mk("open menu", pattern.Click, 0.50, "a")

	e := NewEngine(nil)
	out, res := e.Curate([]pattern.Discovered{p1, p2, p3}, Options{Threshold: 0.70})

	require.Len(t, out, 1)
	assert.Equal(t, "click save", out[0].Normalized)
	assert.InDelta(t, 0.75, out[0].Confidence, 1e-9)

	assert.Equal(t, 3, res.Input)
	assert.Equal(t, 2, res.Boosted)
	assert.Equal(t, 1, res.Deduplicated)
	assert.Equal(t, 1, res.Thresholded)
	assert.Equal(t, 0, res.Pruned)
	assert.Equal(t, 1, res.Output)
}

func TestCurateSkipsPruneWithoutUsage(t *testing.T) {
	old := mk("ancient", pattern.Click, 0.9, "x")
	old.Successes = 1
	old.LastUsed = time.Now().AddDate(-1, 0, 0)

	e := NewEngine(nil)
	out, res := e.Curate([]pattern.Discovered{old}, Options{Threshold: 0.5})
	assert.Len(t, out, 1)
	assert.Equal(t, 0, res.Pruned)
}

func TestCurateDoesNotMutateInput(t *testing.T) {
	a := mk("click save", pattern.Click, 0.60, "a")
	b := mk("click save", pattern.Click, 0.65, "b")
	in := []pattern.Discovered{a, b}

	e := NewEngine(nil)
	e.Curate(in, Options{Threshold: 0.70})

	assert.Equal(t, 0.60, in[0].Confidence)
	assert.Equal(t, 0.65, in[1].Confidence)
}
