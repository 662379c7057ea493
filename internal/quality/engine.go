// Package quality curates raw pattern candidates into a consistent result
// set. The stages run in a fixed order — cross-source boost, deduplication,
// confidence threshold, usage pruning — each a pure function over the
// collection. The boost runs before dedup on purpose: diversity of evidence
// has to be visible before duplicates collapse it.
package quality

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"patternbank/internal/pattern"
)

const (
	// Boost is added to every member of a normalized-text group whose
	// provenance spans at least two distinct values.
	Boost = 0.10
	// BoostCap bounds boosted confidence.
	BoostCap = 0.95

	// DefaultThreshold is the minimum confidence a pattern needs to
	// survive curation.
	DefaultThreshold = 0.70
	// DefaultPruneAge is how long an attempted pattern may go unused
	// before pruning.
	DefaultPruneAge = 90 * 24 * time.Hour
)

// UsageStats carries externally recorded last-used times keyed by pattern
// ID. Its presence enables the pruning stage.
type UsageStats struct {
	LastUsed map[string]time.Time
}

// Options configures one curation run.
type Options struct {
	Threshold float64
	Usage     *UsageStats
	PruneAge  time.Duration
	Now       time.Time
}

// Result records per-stage counts for observability.
type Result struct {
	Input        int `json:"input"`
	Boosted      int `json:"boosted"`
	Deduplicated int `json:"deduplicated"`
	Thresholded  int `json:"thresholded"`
	Pruned       int `json:"pruned"`
	Output       int `json:"output"`
}

// Engine runs the curation pipeline.
type Engine struct {
	log *zap.Logger
}

// NewEngine creates an engine. A nil logger is replaced with a no-op.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Curate applies the fixed stage order and returns the surviving patterns
// plus the stage counts. The input slice is not mutated.
func (e *Engine) Curate(in []pattern.Discovered, opts Options) ([]pattern.Discovered, Result) {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.PruneAge == 0 {
		opts.PruneAge = DefaultPruneAge
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	res := Result{Input: len(in)}

	out := make([]pattern.Discovered, len(in))
	copy(out, in)

	out, res.Boosted = boostCrossSource(out)
	var merged int
	out, merged = dedupe(out)
	res.Deduplicated = merged
	var dropped int
	out, dropped = threshold(out, opts.Threshold)
	res.Thresholded = dropped
	if opts.Usage != nil {
		var pruned int
		out, pruned = prune(out, opts)
		res.Pruned = pruned
	}
	res.Output = len(out)

	e.log.Debug("quality control complete",
		zap.Int("input", res.Input),
		zap.Int("boosted", res.Boosted),
		zap.Int("deduplicated", res.Deduplicated),
		zap.Int("thresholded", res.Thresholded),
		zap.Int("pruned", res.Pruned),
		zap.Int("output", res.Output))
	return out, res
}

// provenanceKey identifies where a pattern's evidence came from, preferring
// the most specific lineage available.
func provenanceKey(p pattern.Discovered) string {
	if p.TemplateSource != "" {
		return "template:" + p.TemplateSource
	}
	if p.Entity != "" {
		return "entity:" + p.Entity
	}
	if len(p.Journeys) > 0 {
		js := append([]string(nil), p.Journeys...)
		sort.Strings(js)
		return "journey:" + strings.Join(js, ",")
	}
	return "source:" + p.Source
}

// boostCrossSource raises confidence for every member of a normalized-text
// group observed from at least two distinct provenance values. Returns the
// number of patterns boosted.
func boostCrossSource(in []pattern.Discovered) ([]pattern.Discovered, int) {
	groups := make(map[string]map[string]struct{})
	for _, p := range in {
		set, ok := groups[p.Normalized]
		if !ok {
			set = make(map[string]struct{})
			groups[p.Normalized] = set
		}
		set[provenanceKey(p)] = struct{}{}
	}

	boosted := 0
	for i := range in {
		if len(groups[in[i].Normalized]) < 2 {
			continue
		}
		c := in[i].Confidence + Boost
		if c > BoostCap {
			c = BoostCap
		}
		if c > in[i].Confidence {
			in[i].Confidence = c
			boosted++
		}
	}
	return in, boosted
}

func dedupeKey(p pattern.Discovered) string {
	return strings.ToLower(p.Normalized) + "\x00" + string(p.Primitive)
}

// dedupe collapses patterns sharing (normalized text, primitive). The
// survivor keeps the maximum confidence, summed counters, the union of
// journeys, and the union of selector hints by (strategy, value) with the
// higher-confidence hint winning a conflict. Returns the number of patterns
// merged away.
//
// The survivor keeps only the first-seen Source/TemplateSource/Entity tags.
// Cross-source diversity was already credited by the boost stage, which runs
// first, so re-crediting it here would double count.
func dedupe(in []pattern.Discovered) ([]pattern.Discovered, int) {
	out := make([]pattern.Discovered, 0, len(in))
	index := make(map[string]int)
	merged := 0

	for _, p := range in {
		key := dedupeKey(p)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, p)
			continue
		}
		merged++
		keep := &out[i]
		if p.Confidence > keep.Confidence {
			keep.Confidence = p.Confidence
		}
		keep.Successes += p.Successes
		keep.Failures += p.Failures
		if p.LastUsed.After(keep.LastUsed) {
			keep.LastUsed = p.LastUsed
		}
		keep.Journeys = unionStrings(keep.Journeys, p.Journeys)
		keep.Selectors = unionSelectors(keep.Selectors, p.Selectors)
	}
	return out, merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			a = append(a, s)
		}
	}
	return a
}

func unionSelectors(a, b []pattern.SelectorHint) []pattern.SelectorHint {
	type key struct{ strategy, value string }
	index := make(map[key]int, len(a))
	for i, h := range a {
		index[key{h.Strategy, h.Value}] = i
	}
	for _, h := range b {
		k := key{h.Strategy, h.Value}
		if i, ok := index[k]; ok {
			if h.Confidence > a[i].Confidence {
				a[i] = h
			}
			continue
		}
		index[k] = len(a)
		a = append(a, h)
	}
	return a
}

// threshold drops patterns below the minimum confidence, preserving order.
func threshold(in []pattern.Discovered, min float64) ([]pattern.Discovered, int) {
	out := in[:0]
	dropped := 0
	for _, p := range in {
		if p.Confidence < min {
			dropped++
			continue
		}
		out = append(out, p)
	}
	return out, dropped
}

// prune removes attempted patterns whose last use is older than the max
// age. A pattern never attempted is always retained: absence of evidence is
// not evidence of staleness.
func prune(in []pattern.Discovered, opts Options) ([]pattern.Discovered, int) {
	out := in[:0]
	pruned := 0
	for _, p := range in {
		lastUsed := p.LastUsed
		if t, ok := opts.Usage.LastUsed[p.ID]; ok {
			lastUsed = t
		}
		if p.Attempted() && !lastUsed.IsZero() && opts.Now.Sub(lastUsed) > opts.PruneAge {
			pruned++
			continue
		}
		out = append(out, p)
	}
	return out, pruned
}
