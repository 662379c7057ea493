package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"patternbank/internal/pattern"
	"patternbank/internal/quality"
	"patternbank/internal/store"
)

// SchemaVersion marks the persisted artifact format.
const SchemaVersion = 1

const (
	// PatternsFileName and ProfileFileName are the artifact files inside
	// the output directory.
	PatternsFileName = "patterns.json"
	ProfileFileName  = "profile.json"

	// Redacted replaces credential-adjacent selector values in persisted
	// artifacts.
	Redacted = "[REDACTED]"
)

// PatternsArtifact is the persisted knowledge-base file.
type PatternsArtifact struct {
	SchemaVersion int                  `json:"schema_version"`
	GeneratedAt   time.Time            `json:"generated_at"`
	BySource      map[string]int       `json:"by_source"`
	QC            quality.Result       `json:"qc"`
	Patterns      []pattern.Discovered `json:"patterns"`
}

// ProfileArtifact is the persisted application profile.
type ProfileArtifact struct {
	SchemaVersion int       `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Profile       Profile   `json:"profile"`
}

// persist writes the curated pattern set and the redacted profile through
// the concurrent store. Both writes go through the lock so racing
// invocations serialize instead of clobbering each other.
func (o *Orchestrator) persist(ctx context.Context, res *RunResult) {
	outDir := o.cfg.ResolveOutputDir(o.workspace)
	// The lock marker lives next to the artifact, so the directory must
	// exist before acquisition.
	if err := os.MkdirAll(outDir, 0755); err != nil {
		res.errorf("phase persist failed: create output dir: %v", err)
		return
	}

	patternsPath := filepath.Join(outDir, PatternsFileName)
	_, ok := phase(o, res, "persist-patterns", true, func() (struct{}, error) {
		err := store.UpdateJSON(ctx, o.st, patternsPath, func(cur PatternsArtifact) (PatternsArtifact, error) {
			return PatternsArtifact{
				SchemaVersion: SchemaVersion,
				GeneratedAt:   time.Now().UTC(),
				BySource:      res.BySource,
				QC:            res.QC,
				Patterns:      redactPatterns(res.Patterns),
			}, nil
		})
		return struct{}{}, err
	})
	if ok {
		res.PatternsFile = patternsPath
		o.log.Info("patterns persisted",
			zap.String("path", patternsPath),
			zap.Int("count", len(res.Patterns)))
	}

	if res.Profile == nil {
		return
	}
	profilePath := filepath.Join(outDir, ProfileFileName)
	_, ok = phase(o, res, "persist-profile", true, func() (struct{}, error) {
		err := store.UpdateJSON(ctx, o.st, profilePath, func(cur ProfileArtifact) (ProfileArtifact, error) {
			return ProfileArtifact{
				SchemaVersion: SchemaVersion,
				GeneratedAt:   time.Now().UTC(),
				Profile:       redactProfile(*res.Profile),
			}, nil
		})
		return struct{}{}, err
	})
	if ok {
		res.ProfileFile = profilePath
	}
}

// redactProfile strips environment-specific and credential-adjacent data
// before anything reaches a committed artifact: absolute paths shrink to a
// basename, auth hint values disappear.
func redactProfile(p Profile) Profile {
	p.Workspace = filepath.Base(p.Workspace)
	if len(p.AuthHints) > 0 {
		hints := make(map[string]string, len(p.AuthHints))
		for k := range p.AuthHints {
			hints[k] = Redacted
		}
		p.AuthHints = hints
	}
	return p
}

// redactPatterns returns a copy of ps with auth-related selector values
// replaced and absolute paths in selector values reduced to basenames.
func redactPatterns(ps []pattern.Discovered) []pattern.Discovered {
	out := make([]pattern.Discovered, len(ps))
	copy(out, ps)
	for i := range out {
		if len(out[i].Selectors) == 0 {
			continue
		}
		sels := make([]pattern.SelectorHint, len(out[i].Selectors))
		copy(sels, out[i].Selectors)
		for j := range sels {
			switch {
			case authRelated(sels[j].Strategy) || authRelated(sels[j].Value):
				sels[j].Value = Redacted
			case filepath.IsAbs(sels[j].Value):
				sels[j].Value = filepath.Base(sels[j].Value)
			}
		}
		out[i].Selectors = sels
	}
	return out
}

var authMarkers = []string{"password", "passwd", "secret", "token", "api-key", "api_key", "apikey", "credential", "auth"}

func authRelated(s string) bool {
	ls := strings.ToLower(s)
	for _, m := range authMarkers {
		if strings.Contains(ls, m) {
			return true
		}
	}
	return false
}
