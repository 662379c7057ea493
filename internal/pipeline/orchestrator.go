package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"patternbank/internal/cache"
	"patternbank/internal/config"
	"patternbank/internal/pattern"
	"patternbank/internal/quality"
	"patternbank/internal/scan"
	"patternbank/internal/store"
)

// RunResult is what a pipeline run always returns, partial failure
// included. Success is true iff no phase recorded a hard error; warnings do
// not affect it.
type RunResult struct {
	Profile      *Profile                   `json:"profile,omitempty"`
	Patterns     []pattern.Discovered       `json:"patterns"`
	PatternsFile string                     `json:"patterns_file,omitempty"`
	ProfileFile  string                     `json:"profile_file,omitempty"`
	BySource     map[string]int             `json:"by_source"`
	QC           quality.Result             `json:"qc"`
	CacheStats   cache.Stats                `json:"cache_stats"`
	Warnings     []string                   `json:"warnings,omitempty"`
	Errors       []string                   `json:"errors,omitempty"`
	Success      bool                       `json:"success"`
	StartedAt    time.Time                  `json:"started_at"`
	Duration     time.Duration              `json:"duration"`
}

func (r *RunResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *RunResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Orchestrator owns one pipeline run over a workspace.
type Orchestrator struct {
	workspace string
	cfg       config.Config
	collab    Collaborators

	cache     *cache.Cache
	ownsCache bool
	scanner   *scan.Scanner
	engine    *quality.Engine
	st        *store.Store
	usage     *quality.UsageStats
	log       *zap.Logger
}

// Options configures an orchestrator.
type Options struct {
	Workspace     string
	Config        config.Config
	Collaborators Collaborators
	// Cache is optional. A caller-supplied cache is shared, and never
	// cleared by the orchestrator; when nil the orchestrator creates and
	// owns one for the run.
	Cache *cache.Cache
	// Usage enables the pruning stage when present.
	Usage  *quality.UsageStats
	Store  *store.Store
	Logger *zap.Logger
}

// New creates an orchestrator for one run.
func New(opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := opts.Cache
	owns := false
	if c == nil {
		c = cache.New(
			cache.WithMaxEntries(opts.Config.CacheMaxEntries),
			cache.WithMaxBytes(opts.Config.CacheMaxBytes),
			cache.WithLogger(log),
		)
		owns = true
	}
	st := opts.Store
	if st == nil {
		st = store.New(
			store.WithWait(opts.Config.LockWait),
			store.WithStaleAfter(opts.Config.LockStale),
			store.WithLogger(log),
		)
	}
	return &Orchestrator{
		workspace: opts.Workspace,
		cfg:       opts.Config,
		collab:    opts.Collaborators,
		cache:     c,
		ownsCache: owns,
		scanner: scan.NewScanner(scan.Config{
			MaxDepth: opts.Config.MaxDepth,
			MaxFiles: opts.Config.MaxFiles,
		}, log),
		engine: quality.NewEngine(log),
		st:     st,
		usage:  opts.Usage,
		log:    log,
	}
}

// phase wraps a collaborator call so that an error or panic becomes a
// recorded string on the run instead of aborting the pipeline.
func phase[T any](o *Orchestrator, res *RunResult, name string, hard bool, fn func() (T, error)) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("phase panicked", zap.String("phase", name), zap.Any("panic", r))
			res.errorf("phase %s panicked: %v", name, r)
			ok = false
		}
	}()

	v, err := fn()
	if err != nil {
		o.log.Warn("phase failed", zap.String("phase", name), zap.Error(err))
		if hard {
			res.errorf("phase %s failed: %v", name, err)
		} else {
			res.warnf("phase %s failed: %v", name, err)
		}
		return out, false
	}
	return v, true
}

// Run executes the fixed phase sequence and always returns a structured
// result. It never panics out of this method.
func (o *Orchestrator) Run(ctx context.Context) *RunResult {
	res := &RunResult{
		BySource:  make(map[string]int),
		StartedAt: time.Now(),
	}
	defer func() {
		res.Duration = time.Since(res.StartedAt)
		res.Success = len(res.Errors) == 0
		res.CacheStats = o.cache.Stats()
		if o.ownsCache {
			o.cache.LogStats()
			o.cache.Clear()
		}
	}()

	files, ok := phase(o, res, "scan", true, func() ([]string, error) {
		return o.scanner.Files(ctx, o.workspace)
	})
	if ok {
		o.log.Info("workspace scanned",
			zap.String("workspace", o.workspace),
			zap.Int("files", len(files)))
	}

	collected := o.collect(ctx, res, files)

	// Signal weighting happens here, before quality control, so every
	// candidate carries at least its source-strength floor.
	collected = quality.ApplyTier(collected)

	curated, qc := o.engine.Curate(collected, quality.Options{
		Threshold: o.cfg.ConfidenceThreshold,
		Usage:     o.usage,
	})
	res.QC = qc

	curated = o.enforceCap(res, curated)
	res.Patterns = curated
	for _, p := range curated {
		res.BySource[p.Source]++
	}

	o.persist(ctx, res)
	return res
}

// collect runs phases 1-5 and returns every raw candidate with its
// provenance tag stamped.
func (o *Orchestrator) collect(ctx context.Context, res *RunResult, files []string) []pattern.Discovered {
	var all []pattern.Discovered

	// Phase 1: structural discovery. Failure is an error but not fatal;
	// profile-dependent phases are skipped.
	if o.collab.Discoverer != nil {
		if profile, ok := phase(o, res, "discovery", true, func() (*Profile, error) {
			return o.collab.Discoverer.Discover(ctx, o.workspace, files, o.cache)
		}); ok {
			res.Profile = profile
		}
	} else {
		res.warnf("phase discovery skipped: no discoverer configured")
	}

	// Phase 2: baseline patterns from the profile.
	if res.Profile != nil && o.collab.Baseline != nil {
		if ps, ok := phase(o, res, "baseline", false, func() ([]pattern.Discovered, error) {
			return o.collab.Baseline.Generate(ctx, res.Profile)
		}); ok {
			all = append(all, stamp(ps, pattern.SourceBaseline)...)
		}
	}

	// Phase 3: code-element mining and template multiplication.
	if o.collab.CodeMiner != nil {
		if ps, ok := phase(o, res, o.collab.CodeMiner.Name(), false, func() ([]pattern.Discovered, error) {
			return o.collab.CodeMiner.Mine(ctx, files, o.cache, res.Profile)
		}); ok {
			all = append(all, stamp(ps, o.collab.CodeMiner.Source())...)
		}
	}

	// Phase 4: framework packs for every detected framework/UI library.
	if !o.cfg.SkipFrameworkPacks && o.collab.Packs != nil && res.Profile != nil {
		for _, fw := range append(append([]string{}, res.Profile.Frameworks...), res.Profile.UILibraries...) {
			fw := fw
			if ps, ok := phase(o, res, "pack:"+fw, false, func() ([]pattern.Discovered, error) {
				return o.collab.Packs.Load(ctx, fw)
			}); ok {
				all = append(all, stamp(ps, pattern.SourcePack)...)
			}
		}
	}

	// Phase 5: auxiliary miners share this run's content cache.
	if !o.cfg.SkipAuxiliaryMiners {
		for _, m := range o.collab.Auxiliary {
			m := m
			if ps, ok := phase(o, res, m.Name(), false, func() ([]pattern.Discovered, error) {
				return m.Mine(ctx, files, o.cache, res.Profile)
			}); ok {
				all = append(all, stamp(ps, m.Source())...)
			}
		}
	}

	return all
}

// stamp enforces the orchestrator-assigned provenance tag on collaborator
// output.
func stamp(ps []pattern.Discovered, source string) []pattern.Discovered {
	for i := range ps {
		ps[i].Source = source
	}
	return ps
}

// enforceCap applies the hard safety cap: highest confidence wins, ties
// broken by normalized text for determinism.
func (o *Orchestrator) enforceCap(res *RunResult, ps []pattern.Discovered) []pattern.Discovered {
	if o.cfg.MaxPatterns <= 0 || len(ps) <= o.cfg.MaxPatterns {
		return ps
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Confidence != ps[j].Confidence {
			return ps[i].Confidence > ps[j].Confidence
		}
		return ps[i].Normalized < ps[j].Normalized
	})
	res.warnf("pattern cap exceeded: kept %d of %d by confidence", o.cfg.MaxPatterns, len(ps))
	return ps[:o.cfg.MaxPatterns]
}
