// Veritasd serves the veritas fact-check, deepfake, virality and chat API.
//
// Configuration comes from an optional YAML file and VERITAS_* environment
// variables. See internal/config for the full list.
//
// Usage:
//
//	# Start with defaults (the API key is always required)
//	VERITAS_GENAI_API_KEY=... veritasd
//
//	# Start with a config file
//	veritasd -config /etc/veritas/config.yaml
//
//	# Print build information
//	veritasd version
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

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/veritas/internal/analysis"
	"github.com/fyrsmithlabs/veritas/internal/chat"
	"github.com/fyrsmithlabs/veritas/internal/config"
	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/geo"
	httpserver "github.com/fyrsmithlabs/veritas/internal/http"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
	"github.com/fyrsmithlabs/veritas/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("VERITAS_CONFIG"), "path to YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  veritasd [-config file]   Start the veritas daemon\n")
			fmt.Fprintf(os.Stderr, "  veritasd version          Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("veritasd: %v", err)
	}
}

func printVersion() {
	fmt.Printf("veritasd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires every component and serves until ctx is cancelled:
//  1. configuration
//  2. telemetry, then the logger (which bridges into telemetry)
//  3. the generative-AI client and the prompt catalog
//  4. the analysis service and the chat store
//  5. the HTTP server, shut down gracefully on cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logCfg, err := logging.FromConfig(cfg.Logging, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", h.Reasons))
	}

	gen, err := genai.New(genai.ConfigFrom(cfg.GenAI), genai.WithLogger(logger.Named("genai")))
	if err != nil {
		return fmt.Errorf("creating %s client: %w", cfg.GenAI.Provider, err)
	}

	builder, catalog, err := newBuilder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if catalog != nil {
		defer catalog.Stop()
	}

	svc := analysis.NewService(gen, builder,
		analysis.WithLocator(defaultLocator(cfg.Geo)),
		analysis.WithGeoTimeout(cfg.Geo.Timeout),
		analysis.WithLogger(logger.Named("analysis")),
		analysis.WithMetrics(analysis.NewMetrics()),
	)
	chats := chat.NewStore(gen, builder,
		chat.WithMaxSessions(cfg.Chat.MaxSessions),
		chat.WithStoreLogger(logger.Named("chat")),
		chat.WithStoreMetrics(chat.NewMetrics()),
	)

	srv, err := httpserver.NewServer(svc, chats, logger, &httpserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		BodyLimit: cfg.Server.BodyLimit,
		Version:   version,
		Provider:  cfg.GenAI.Provider,
		Metrics:   cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	logger.Info(ctx, "starting veritasd",
		zap.String("version", version),
		zap.String("provider", cfg.GenAI.Provider),
		logging.Secret("api_key", cfg.GenAI.APIKey),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("telemetry", tel.IsEnabled()),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	logger.Info(shutdownCtx, "veritasd stopped")
	return nil
}

// newBuilder creates the prompt builder, attaching the instruction catalog
// when one is configured. The returned catalog is nil otherwise.
func newBuilder(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*prompt.Builder, *prompt.Catalog, error) {
	models := prompt.ConfigFrom(cfg.Models)

	catalog, err := prompt.CatalogFromFile(cfg.Prompts.CatalogPath, logger.Named("prompt"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading prompt catalog: %w", err)
	}
	if catalog == nil {
		return prompt.NewBuilder(models), nil, nil
	}

	if cfg.Prompts.Watch {
		if err := catalog.Watch(ctx); err != nil {
			// The catalog still works, it just won't pick up edits.
			logger.Warn(ctx, "prompt catalog watch disabled", zap.String("path", catalog.Path()), zap.Error(err))
		}
	}
	return prompt.NewBuilder(models, prompt.WithCatalog(catalog)), catalog, nil
}

// defaultLocator returns the server-side location used when a fact-check
// request carries none. Without a configured default, checks run unlocated.
func defaultLocator(gc config.GeoConfig) geo.Locator {
	if !gc.DefaultEnabled {
		return nil
	}
	return geo.Fixed(geo.Location{Latitude: gc.DefaultLatitude, Longitude: gc.DefaultLongitude})
}
