// Package cli wires the application and exposes its cobra commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"doc-recognizer/internal/artifacts"
	"doc-recognizer/internal/config"
	"doc-recognizer/internal/domain"
	"doc-recognizer/internal/jobs"
	"doc-recognizer/internal/recognize"
	"doc-recognizer/internal/recognize/tesseract"
	"doc-recognizer/internal/resolve"
)

var (
	flagVerbose bool

	application *app
)

// app is the composition root: it owns the settings store, the artifact
// registry and cache, and the orchestrator every command drives.
type app struct {
	settings     domain.Settings
	store        config.Store
	registry     *artifacts.Registry
	cache        *artifacts.Cache
	engine       *tesseract.Engine
	orchestrator *jobs.Orchestrator
	logger       *slog.Logger
}

// buildApp loads persisted settings and wires all components.
func buildApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	dataDir := filepath.Join(homeDir, ".doc-recognizer")

	store := config.NewJSONStore(filepath.Join(dataDir, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	registry, err := artifacts.NewRegistry(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open artifact registry: %w", err)
	}

	fetcher := artifacts.NewHTTPFetcher(settings.ArtifactBaseURL, settings.FetchRequestsPerSecond)
	cache := artifacts.NewCache(registry, fetcher, settings.CacheDir, logger)
	engine := tesseract.New(settings.CacheDir)
	gateway := recognize.NewGateway(engine, logger)
	resolver := resolve.NewResolver(logger)
	orchestrator := jobs.NewOrchestrator(cache, resolver, gateway, jobs.Options{
		MaxConcurrentJobs: settings.MaxConcurrentJobs,
		PageLatencyWarn:   time.Duration(settings.PageLatencyWarnSeconds * float64(time.Second)),
		Logger:            logger,
	})

	return &app{
		settings:     settings,
		store:        store,
		registry:     registry,
		cache:        cache,
		engine:       engine,
		orchestrator: orchestrator,
		logger:       logger,
	}, nil
}

// close releases the registry database handle.
func (a *app) close() {
	if a.registry != nil {
		_ = a.registry.Close()
	}
}

var rootCmd = &cobra.Command{
	Use:   "doc-recognizer",
	Short: "Recognize text in images and documents",
	Long: `doc-recognizer ingests raster images, multi-page documents, and compound
text documents, runs each through a recognition pipeline, and exports the
recognized text. Language artifacts are cached locally so recognition works
offline once fetched.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		a, err := buildApp()
		if err != nil {
			return err
		}
		application = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			application.close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
