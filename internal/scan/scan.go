// Package scan walks a target codebase within fixed bounds and yields the
// candidate source files the mining phases read (through the content
// cache). Bounds exist so a pathological tree cannot stall a run: recursion
// depth, total file count, and a fixed set of candidate directories and
// extensions.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Config controls scanning scope.
type Config struct {
	// SourceDirs are candidate directories relative to the workspace root.
	// Only those that exist are walked.
	SourceDirs []string
	// Extensions are the source-file suffixes considered.
	Extensions []string
	// IgnoreDirs are directory names skipped wherever they appear.
	IgnoreDirs []string
	// MaxDepth bounds recursion relative to the workspace root.
	MaxDepth int
	// MaxFiles caps how many files one scan may yield.
	MaxFiles int
}

// DefaultConfig returns the scanning bounds used for web-application
// codebases.
func DefaultConfig() Config {
	return Config{
		SourceDirs: []string{"src", "app", "components", "pages", "routes", "views", "lib", "features"},
		Extensions: []string{".js", ".jsx", ".ts", ".tsx", ".vue", ".svelte", ".html"},
		IgnoreDirs: []string{
			".git",
			"node_modules",
			"vendor",
			"dist",
			"build",
			".next",
			".nuxt",
			"coverage",
			".cache",
		},
		MaxDepth: 16,
		MaxFiles: 4000,
	}
}

// Scanner finds candidate source files under a workspace root.
type Scanner struct {
	cfg Config
	log *zap.Logger
}

// NewScanner creates a scanner. Zero-valued config fields fall back to
// defaults.
func NewScanner(cfg Config, log *zap.Logger) *Scanner {
	def := DefaultConfig()
	if len(cfg.SourceDirs) == 0 {
		cfg.SourceDirs = def.SourceDirs
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = def.Extensions
	}
	if len(cfg.IgnoreDirs) == 0 {
		cfg.IgnoreDirs = def.IgnoreDirs
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{cfg: cfg, log: log}
}

// Files returns the candidate source files under root, sorted, capped at
// MaxFiles. Symbolic links are never followed.
func (s *Scanner) Files(ctx context.Context, root string) ([]string, error) {
	var files []string

	for _, dir := range s.cfg.SourceDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := filepath.Join(root, dir)
		info, err := os.Lstat(base)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := s.walk(ctx, root, base, &files); err != nil {
			return nil, err
		}
		if len(files) >= s.cfg.MaxFiles {
			s.log.Warn("scan file cap reached",
				zap.Int("max_files", s.cfg.MaxFiles),
				zap.String("root", root))
			break
		}
	}

	sort.Strings(files)
	return files, nil
}

// errScanDone aborts a walk once the file cap is hit.
var errScanDone = walkDone{}

type walkDone struct{}

func (walkDone) Error() string { return "scan complete" }

func (s *Scanner) walk(ctx context.Context, root, base string, files *[]string) error {
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable subtree: excluded, not fatal.
			s.log.Debug("scan skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			if s.ignored(d.Name()) {
				return filepath.SkipDir
			}
			if depth >= s.cfg.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !s.wantedExt(path) {
			return nil
		}

		*files = append(*files, path)
		if len(*files) >= s.cfg.MaxFiles {
			return errScanDone
		}
		return nil
	})
	if err == errScanDone {
		return nil
	}
	return err
}

func (s *Scanner) ignored(name string) bool {
	for _, ig := range s.cfg.IgnoreDirs {
		if name == ig {
			return true
		}
	}
	return false
}

func (s *Scanner) wantedExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range s.cfg.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}
