package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/api"
	"github.com/gcbaptista/go-entity-linker/config"
	"github.com/gcbaptista/go-entity-linker/internal/analytics"
	"github.com/gcbaptista/go-entity-linker/internal/disambiguation"
	"github.com/gcbaptista/go-entity-linker/internal/jobs"
	"github.com/gcbaptista/go-entity-linker/internal/kb"
	"github.com/gcbaptista/go-entity-linker/internal/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Define command-line flags
	var (
		help       = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file (optional)")
		port       = flag.String("port", "", "Port to run the server on (overrides configuration)")
	)

	flag.Parse()

	// Handle help flag
	if *help {
		fmt.Printf("Go Entity Linker - resolves marked mentions in text to knowledge-base entries\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nEnvironment variables prefixed with LINKER_ override the configuration file.\n")
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                                   # Start with ./config.yaml or the environment\n", os.Args[0])
		fmt.Printf("  %s --port 9000                       # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  LINKER_KB_DRIVER=sqlite LINKER_KB_DSN=kb.db %s\n", os.Args[0])
		return
	}

	// Handle version flag
	if *version {
		fmt.Printf("Go Entity Linker v1.0.0\n")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	os.Exit(exitCode(logger, run(cfg, logger)))
}

// exitCode logs err and flushes the logger before the process exits.
func exitCode(logger *zap.Logger, err error) int {
	defer func() { _ = logger.Sync() }()
	if err != nil {
		logger.Error("Entity linker stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Opening knowledge base", zap.String("driver", cfg.KnowledgeBase.Driver))
	store, err := kb.Open(ctx, cfg.KnowledgeBase, logger)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close knowledge base", zap.Error(err))
		}
	}()

	tracker := analytics.NewService(cfg.AnalyticsPath, logger)
	defer tracker.Close()

	linker, err := disambiguation.NewService(store, cfg.Linker, logger, disambiguation.WithAnalytics(tracker))
	if err != nil {
		return err
	}

	manager := jobs.NewManager(cfg.JobWorkers, logger)
	manager.Start()
	defer manager.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, linker, api.Options{
		Jobs:            manager,
		Analytics:       tracker,
		Importer:        store,
		Logger:          logger.Named("http"),
		MaxRequestBytes: cfg.MaxRequestBytes,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
