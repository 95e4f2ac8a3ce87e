package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/facultypulse/internal/config"
	"github.com/TobiSchelling/facultypulse/internal/database"
	"github.com/TobiSchelling/facultypulse/internal/keystore"
	"github.com/TobiSchelling/facultypulse/internal/pipeline"
	"github.com/TobiSchelling/facultypulse/internal/server"
)

var version = "dev"

var errNoProfessors = errors.New("no professors could be loaded; run 'facultypulse load' for details")

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "facultypulse",
	Short:   "Browse and analyze professor ratings",
	Long:    "facultypulse loads a professor-rating dataset, caches it locally, and lets you search, summarize, and report on it.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFlags(log.LstdFlags)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if verbose || strings.EqualFold(cfg.Logging.Level, "DEBUG") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("facultypulse", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/facultypulse/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your dataset and choose an AI provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache, load history, and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		stats, err := db.GetStats(ctx, "professors")
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		_, label, err := pipeline.SourceFromConfig(cfg)
		if err != nil {
			label = "not configured"
		}
		fmt.Printf("Source: %s\n\n", label)

		fmt.Println("Cache:")
		if stats.CacheSavedAt == nil {
			fmt.Println("  Empty")
		} else {
			fmt.Printf("  Professors: %s\n", humanize.Comma(int64(stats.CachedProfessors)))
			fmt.Printf("  Records with errors: %d\n", stats.CachedErrors)
			fresh := "fresh"
			if time.Since(*stats.CacheSavedAt) >= cfg.Cache.MaxAge {
				fresh = "expired"
			}
			fmt.Printf("  Saved: %s (%s)\n", humanize.Time(*stats.CacheSavedAt), fresh)
		}

		fmt.Println("\nHistory:")
		fmt.Printf("  Load runs: %d\n", stats.LoadRuns)
		fmt.Printf("  Stored summaries: %d\n", stats.Summaries)
		runs, err := db.RecentLoadRuns(ctx, 5, "")
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Printf("  %s  %-9s %d professors, %d errors", r.StartedAt.Local().Format("2006-01-02 15:04"), r.Outcome, r.ProfessorCount, r.ErrorCount)
			if r.Message != nil && *r.Message != "" {
				fmt.Printf("  (%s)", *r.Message)
			}
			fmt.Println()
		}

		fmt.Println("\nAI:")
		fmt.Printf("  Provider: %s\n", cfg.Summarization.Provider)
		secret, source, err := apiKeyStore().Retrieve()
		switch {
		case err == nil:
			fmt.Printf("  API key: %s (%s)\n", keystore.Mask(secret), source)
		default:
			fmt.Println("  API key: not set")
		}
		return nil
	},
}

// --- load command ---

var (
	forceLoad  bool
	clearCache bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the dataset, using the cache when it is fresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		result, err := runPipeline(ctx, db, pipeline.Options{Force: forceLoad, ClearCache: clearCache}, true)
		if err != nil {
			return err
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		fmt.Printf("\nLoaded %s professors from %s", humanize.Comma(int64(len(result.Professors))), result.Origin)
		if len(result.Errors) > 0 {
			fmt.Printf(" (%d records with errors, see 'facultypulse errors')", len(result.Errors))
		}
		fmt.Println()
		if result.Empty() {
			fmt.Println("No professors available. Check dataset.base_url or dataset.dir in your config.")
		}
		return nil
	},
}

func init() {
	loadCmd.Flags().BoolVarP(&forceLoad, "force", "f", false, "Ignore a fresh cache and reload from the source")
	loadCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Delete the cached dataset before loading")
}

// runPipeline loads the dataset. With progress set, batch progress is
// printed to stderr.
func runPipeline(ctx context.Context, db *database.DB, opts pipeline.Options, progress bool) (*pipeline.Result, error) {
	pipe, err := pipeline.New(cfg, db)
	if err != nil {
		return nil, err
	}
	if progress {
		opts.Progress = func(processed, total, loaded, errs int) {
			fmt.Fprintf(os.Stderr, "\r  %d/%d records (%d loaded, %d errors)", processed, total, loaded, errs)
			if processed == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}
	return pipe.Load(ctx, opts)
}

// loadDataset returns the dataset for read-only commands, failing when
// nothing could be loaded.
func loadDataset(ctx context.Context, db *database.DB) (*pipeline.Result, error) {
	result, err := runPipeline(ctx, db, pipeline.Options{}, false)
	if err != nil {
		return nil, err
	}
	if result.Origin == pipeline.OriginNone {
		return nil, errNoProfessors
	}
	return result, nil
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		pipe, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}
		result, err := pipe.Load(ctx, pipeline.Options{})
		if err != nil {
			return err
		}

		srv, err := server.New(server.DatasetFrom(result), newSummarizer(db))
		if err != nil {
			return err
		}
		srv.SetLoader(pipe)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DatabasePath())
}
