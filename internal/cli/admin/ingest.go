package admin

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reposift/reposift/internal/batch"
	"github.com/reposift/reposift/internal/cache"
	"github.com/reposift/reposift/internal/config"
	"github.com/reposift/reposift/internal/database"
	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/feed"
	"github.com/reposift/reposift/internal/ingest"
	"github.com/reposift/reposift/internal/repository"
	"github.com/reposift/reposift/internal/storage"
	"github.com/reposift/reposift/internal/summarize"
	"github.com/reposift/reposift/internal/telemetry"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run an ingestion batch",
		Long: "Fetch the repository feed, take the partition owned by this worker, " +
			"and summarize every repository whose push timestamp changed since the " +
			"last successful run",
		RunE: runIngest,
	}

	cmd.Flags().Int("batch-size", 1, "Total number of coordinated workers")
	cmd.Flags().Int("offset", 0, "This worker's offset (0 <= offset < batch-size)")
	cmd.Flags().Bool("dry-run", false, "Log the assigned partition without summarizing or writing")
	cmd.Flags().Duration("every", 0, "Re-run on this interval until interrupted (0 runs once)")
	cmd.Flags().String("feed-url", "", "Override the repository feed URL")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Debug)

	shutdownTelemetry := initTelemetry(cfg, logger)
	defer shutdownTelemetry()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	offset, _ := cmd.Flags().GetInt("offset")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	every, _ := cmd.Flags().GetDuration("every")

	if err := batch.Validate(batchSize, offset); err != nil {
		return err
	}

	feedURL, _ := cmd.Flags().GetString("feed-url")
	if feedURL == "" {
		feedURL = cfg.FeedURL
	}
	fetcher := feed.NewFetcher(feedURL, logger)

	var runner *ingest.Runner
	if dryRun {
		// A dry run logs the assigned partition and touches nothing
		// downstream, so none of the processing dependencies are wired.
		runner = ingest.NewRunner(fetcher, cache.NewGate(nil, logger), nil, nil, nil, logger)
	} else {
		if !cfg.HasDigest() {
			return domain.NewDomainError(domain.ErrCodeConfiguration,
				"digest service not configured: REPOSIFT_DIGEST_URL required")
		}
		if !cfg.HasS3() {
			return domain.NewDomainError(domain.ErrCodeConfiguration,
				"artifact store not configured: REPOSIFT_S3_ENDPOINT, REPOSIFT_S3_ACCESS_KEY_ID and REPOSIFT_S3_SECRET_ACCESS_KEY required")
		}

		var gate *cache.Gate
		var fingerprints ingest.FingerprintWriter
		if cfg.HasDatabase() {
			pool, err := database.NewPool(ctx, cfg.DatabaseURL)
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

			repo := repository.NewFingerprintRepository(pool)
			gate = cache.NewGate(repo, logger)
			fingerprints = repo
		} else {
			gate = cache.NewGate(nil, logger)
			logger.Warn("no database configured, fingerprint cache disabled: every run reprocesses its whole partition")
		}

		store, err := storage.NewArtifactStore(ctx, storage.S3ClientConfig{
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

		var condenser summarize.Condenser
		if cfg.HasOpenAI() {
			condenser = summarize.NewOpenAICondenser(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
		worker := summarize.NewWorker(summarize.NewHTTPDigester(cfg.DigestURL), condenser, cfg.SummarizeTimeout, logger)

		runner = ingest.NewRunner(fetcher, gate, worker, store, fingerprints, logger)
	}

	opts := ingest.Options{BatchSize: batchSize, Offset: offset, DryRun: dryRun}

	if _, err := runner.Run(ctx, opts); err != nil {
		telemetry.CaptureError(ctx, err)
		return err
	}

	if every > 0 {
		// Blocks until SIGINT/SIGTERM cancels the context.
		ingest.NewPeriodic(runner, opts, every, logger).Start(ctx)
	}

	return nil
}
