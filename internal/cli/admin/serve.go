package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/reposift/reposift/internal/api/handlers"
	"github.com/reposift/reposift/internal/config"
	"github.com/reposift/reposift/internal/database"
	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/enrich"
	"github.com/reposift/reposift/internal/search"
	"github.com/reposift/reposift/internal/server"
	"github.com/reposift/reposift/internal/storage"
	"github.com/reposift/reposift/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the query API server",
		Long:  "Start the reposift query API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Debug)

	shutdownTelemetry := initTelemetry(cfg, logger)
	defer shutdownTelemetry()

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	// The query surface runs without a database; the fingerprint cache is
	// only needed by ingestion. Connect when configured so operators can
	// share one .env between serve and ingest.
	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := database.Migrate(cfg.DatabaseURL, "", logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}

	var store *storage.ArtifactStore
	if cfg.HasS3() {
		store, err = storage.NewArtifactStore(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create artifact store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure artifact bucket: %w", err)
		}
		logger.Info("artifact bucket ready", "bucket", cfg.S3Bucket)
	}

	var searcher handlers.Searcher
	if cfg.HasSearch() {
		searcher = search.NewClient(cfg.SearchEndpoint, cfg.SearchAPIKey, logger)
	} else {
		searcher = &unconfiguredSearcher{}
	}

	var metaStore enrich.MetadataStore
	if store != nil {
		metaStore = store
	}
	enricher, err := enrich.NewEnricher(metaStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create enricher: %w", err)
	}
	defer enricher.Release()

	var artifacts handlers.ArtifactReader
	if store != nil {
		artifacts = store
	} else {
		artifacts = &unconfiguredStore{}
	}

	var pinger handlers.StoragePinger
	if store != nil {
		pinger = store
	}

	routerCfg := server.RouterConfig{
		SearchHandler:    handlers.NewSearchHandler(searcher, enricher),
		SummariesHandler: handlers.NewSummariesHandler(artifacts),
		HealthHandler:    handlers.NewHealthHandler(pinger, cfg.HasSearch()),
		Logger:           logger,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// initTelemetry starts Sentry when a DSN is configured. Failures are logged
// and the process continues without tracing.
func initTelemetry(cfg *config.Config, logger *slog.Logger) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", "error", err)
		return func() {}
	}
	return shutdown
}

type unconfiguredSearcher struct{}

func (s *unconfiguredSearcher) Search(ctx context.Context, q domain.SearchQuery) ([]domain.RawSearchResult, error) {
	return nil, domain.NewServiceUnavailable("search not configured: REPOSIFT_SEARCH_ENDPOINT required", 0, nil)
}

type unconfiguredStore struct{}

func (s *unconfiguredStore) GetArtifact(ctx context.Context, org, repo string) (domain.SummaryArtifact, error) {
	return domain.SummaryArtifact{}, domain.NewServiceUnavailable("artifact store not configured: REPOSIFT_S3_ENDPOINT required", 0, nil)
}
