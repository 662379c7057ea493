package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"patternbank/internal/config"
	"patternbank/internal/logging"
	"patternbank/internal/pattern"
	"patternbank/internal/pipeline"
	"patternbank/internal/store"
)

var (
	verbose   bool
	workspace string
	outputDir string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "patternbank",
	Short: "patternbank - mine and curate test interaction patterns",
	Long: `patternbank scans a target codebase, curates candidate test interaction
patterns (e.g. "click save button") into a confidence-scored knowledge
base, and persists it as JSON artifacts safe against concurrent runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if workspace == "" {
			workspace, err = os.Getwd()
			if err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run the mining pipeline and persist the knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(workspace)
		if err != nil {
			return err
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}

		o := pipeline.New(pipeline.Options{
			Workspace: workspace,
			Config:    cfg,
			Collaborators: pipeline.Collaborators{
				Discoverer: pipeline.StaticDiscoverer{},
				Baseline:   pipeline.DefaultBaseline{},
			},
			Logger: logger,
		})

		res := o.Run(cmd.Context())

		fmt.Printf("patterns: %d  (file: %s)\n", len(res.Patterns), res.PatternsFile)
		for _, w := range res.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		for _, e := range res.Errors {
			fmt.Printf("error: %s\n", e)
		}
		if !res.Success {
			return fmt.Errorf("run completed with %d error(s)", len(res.Errors))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the persisted pattern knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(workspace)
		if err != nil {
			return err
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}
		path := filepath.Join(cfg.ResolveOutputDir(workspace), pipeline.PatternsFileName)

		var artifact pipeline.PatternsArtifact
		if err := store.ReadJSON(path, &artifact); err != nil {
			return err
		}

		fmt.Printf("schema: v%d  generated: %s\n", artifact.SchemaVersion, artifact.GeneratedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("patterns: %d\n", len(artifact.Patterns))

		sources := make([]string, 0, len(artifact.BySource))
		for s := range artifact.BySource {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			fmt.Printf("  %-16s %4d  (tier %.2f)\n", s, artifact.BySource[s], pattern.TierFor(s))
		}
		fmt.Printf("quality: input=%d boosted=%d deduplicated=%d thresholded=%d pruned=%d output=%d\n",
			artifact.QC.Input, artifact.QC.Boosted, artifact.QC.Deduplicated,
			artifact.QC.Thresholded, artifact.QC.Pruned, artifact.QC.Output)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default: cwd)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "artifact output directory override")
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
