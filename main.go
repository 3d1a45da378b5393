package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pcbaerp/internal/config"
	"pcbaerp/internal/insight"
	"pcbaerp/internal/server"
	"pcbaerp/internal/store/sqlite"
)

var (
	configPath string
	verbose    bool
	dbPath     string
	port       int
	noSeed     bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pcbaerp",
	Short: "PCBA factory ERP service",
	Long: `pcbaerp runs the factory back office: work orders, purchasing,
warehouse lots, station logs, defects, traceability, accounting, shipping,
customs and HR, served as a JSON API with a live change feed.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (watched for changes)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite snapshot path (overrides store.db_path)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides server.port)")
	rootCmd.PersistentFlags().BoolVar(&noSeed, "no-seed", false, "Start with empty collections")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if noSeed {
		cfg.Store.Seed = false
	}
}

// newGenerator builds the AI client, or returns nil when no key is set.
func newGenerator(ctx context.Context, cfg *config.Config) (insight.Generator, error) {
	if !cfg.InsightConfigured() {
		return nil, nil
	}
	gen, err := insight.NewGenAI(ctx, cfg.Insight.APIKey, cfg.Insight.TextModel, cfg.Insight.ImageModel)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// buildApp opens the store and assembles the application. The returned
// function closes the snapshot database.
func buildApp(ctx context.Context, cfg *config.Config) (*server.App, func(), error) {
	var db *sqlite.DB
	closeDB := func() {}
	if cfg.Store.DBPath != "" {
		var err error
		db, err = sqlite.Open(cfg.Store.DBPath)
		if err != nil {
			return nil, nil, err
		}
		closeDB = func() {
			if err := db.Close(); err != nil {
				logger.Warn("close snapshot database", zap.Error(err))
			}
		}
		logger.Info("snapshot database opened", zap.String("path", cfg.Store.DBPath))
	}

	data, err := server.OpenCollections(ctx, server.OpenOptions{DB: db, Seed: cfg.Store.Seed})
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		logger.Warn("AI insights disabled", zap.Error(err))
	}
	app := server.New(cfg, data, server.Options{Log: logger, DB: db, Generator: gen})
	return app, closeDB, nil
}
