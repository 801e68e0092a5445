package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/adapter/fx"
	"github.com/iho/txpipeline/internal/adapter/gcs"
	httpAdapter "github.com/iho/txpipeline/internal/adapter/http"
	"github.com/iho/txpipeline/internal/adapter/http/handler"
	"github.com/iho/txpipeline/internal/adapter/output"
	fileRepo "github.com/iho/txpipeline/internal/adapter/repository/file"
	postgresRepo "github.com/iho/txpipeline/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/txpipeline/internal/adapter/repository/redis"
	"github.com/iho/txpipeline/internal/adapter/repository/sqlite"
	"github.com/iho/txpipeline/internal/adapter/source"
	"github.com/iho/txpipeline/internal/domain"
	"github.com/iho/txpipeline/internal/infrastructure/config"
	"github.com/iho/txpipeline/internal/infrastructure/logger"
	"github.com/iho/txpipeline/internal/infrastructure/metrics"
	"github.com/iho/txpipeline/internal/infrastructure/postgres"
	"github.com/iho/txpipeline/internal/infrastructure/redis"
	"github.com/iho/txpipeline/internal/usecase"
)

const (
	msgNoRecords = "No records loaded. Check your data directory and filenames."
	msgDone      = "Done. Wrote outputs to: %s\n"

	shutdownTimeout = 5 * time.Second
	pushTimeout     = 10 * time.Second
)

type runOptions struct {
	inputDir     string
	outDir       string
	defaultDate  string
	fxCache      string
	threshold    float64
	thresholdSet bool
	metricsAddr  string
}

// parseDefaultDate accepts an empty string (no default) or a YYYY-MM-DD date,
// which is then used verbatim as a timestamp.
func parseDefaultDate(s string) (sql.NullString, error) {
	if s == "" {
		return sql.NullString{}, nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return sql.NullString{}, fmt.Errorf("%w: %q", domain.ErrInvalidDefaultDate, s)
	}
	return sql.NullString{String: s, Valid: true}, nil
}

// applyFlags lets explicitly given flags override the environment.
func applyFlags(cfg *config.Config, opts runOptions) {
	if opts.fxCache != "" {
		cfg.FXCachePath = opts.fxCache
	}
	if opts.thresholdSet {
		cfg.HighAmountThreshold = opts.threshold
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
}

func runPipeline(ctx context.Context, opts runOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaultDate, err := parseDefaultDate(opts.defaultDate)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	applyFlags(cfg, opts)

	idGen := postgresRepo.NewULIDGenerator()
	runID := idGen.Generate()

	logCfg := logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "pipeline"}
	// The pipeline tags its own lines with the run ID.
	pipelineLog := logger.New(logCfg)
	logCfg.RunID = runID
	log := logger.New(logCfg)

	m := metrics.New()
	var checks []handler.Check

	mapping := source.DefaultMapping()
	if cfg.MappingFile != "" {
		mapping, err = source.LoadMapping(cfg.MappingFile)
		if err != nil {
			return err
		}
	}

	cache, redisClient := newRateCache(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
		checks = append(checks, handler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	converter := usecase.NewConverter(usecase.ConverterConfig{
		Rates: fx.NewClient(fx.Config{
			BaseURL:    cfg.FXAPIBase,
			Timeout:    cfg.FXTimeout,
			MaxRetries: cfg.FXMaxRetries,
			Logger:     log,
		}),
		Cache:     cache,
		Reference: cfg.ReferenceCurrency,
		Metrics:   m,
		Logger:    log,
	})

	stores := []output.Store{&outDirStore{path: filepath.Join(opts.outDir, sqlite.FileName)}}

	if cfg.DatabaseURL != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return err
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		log.Info().Msg("connected to postgres")

		checks = append(checks, handler.Check{Name: "postgres", Ping: pool.Ping})
		stores = append(stores, postgresRepo.NewTransactionStore(
			postgresRepo.NewTxManager(pool),
			postgresRepo.NewRetrier(log),
		))
	}

	writerCfg := output.Config{OutDir: opts.outDir, Stores: stores, Logger: log}
	if cfg.GCSBucket != "" {
		mirror, err := gcs.NewMirror(ctx, cfg.GCSBucket, cfg.GCSPrefix, log)
		if err != nil {
			return err
		}
		defer mirror.Close()
		writerCfg.Mirror = mirror
	}

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, m, checks, log)
		defer shutdown()
	}

	pipeline := usecase.NewPipeline(usecase.PipelineConfig{
		Loader:    source.NewLoader(mapping, log),
		Converter: converter,
		Writer:    output.NewWriter(writerCfg),
		IDGen:     idGen,
		Metrics:   m,
		Logger:    pipelineLog,
		Threshold: decimal.NewFromFloat(cfg.HighAmountThreshold),
	})

	start := time.Now()
	summary, runErr := pipeline.Run(ctx, usecase.RunInput{
		RunID:       runID,
		InputDir:    opts.inputDir,
		DefaultDate: defaultDate,
	})

	status := "success"
	if runErr != nil {
		status = "failure"
	}
	m.RecordRun(status, time.Since(start).Seconds())
	pushMetrics(cfg.PushgatewayURL, runID, m, log)

	if runErr != nil {
		log.Error().Err(runErr).Msg("pipeline failed")
		return runErr
	}

	if summary.Loaded == 0 {
		fmt.Fprintln(out, msgNoRecords)
		return nil
	}

	log.Info().
		Int("loaded", summary.Loaded).
		Int("errors", summary.Errors).
		Int("duplicates", summary.Duplicates).
		Int("clean", summary.Clean).
		Int("suspicious", summary.Suspicious).
		Int("rate_pairs", summary.RatePairs).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("run completed")

	fmt.Fprintf(out, msgDone, opts.outDir)
	return nil
}

// newRateCache opens the configured cache. An unreachable Redis is not
// fatal: the run continues without a cache and every rate is looked up.
func newRateCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (usecase.RateCache, *goredis.Client) {
	if cfg.FXCacheBackend != config.CacheBackendRedis {
		return fileRepo.NewRateCache(cfg.FXCachePath, log), nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis rate cache unavailable, continuing without cache")
		return usecase.NopRateCache{}, nil
	}
	log.Info().Msg("connected to redis")

	return redisRepo.NewRateCache(client, cfg.FXCacheTTL), client
}

func serveMetrics(addr string, m *metrics.Metrics, checks []handler.Check, log zerolog.Logger) func() {
	server := &http.Server{
		Addr: addr,
		Handler: httpAdapter.NewRouter(httpAdapter.RouterConfig{
			HealthHandler: handler.NewHealthHandler(checks...),
			Gatherer:      m.Registry(),
			Registerer:    m.Registry(),
			Logger:        log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("metrics server forced to shutdown")
		}
	}
}

func pushMetrics(url, runID string, m *metrics.Metrics, log zerolog.Logger) {
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := m.Push(ctx, url, runID); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
	}
}

// outDirStore opens the out-dir SQLite database only when a run has
// records to save, so an empty run leaves the out dir untouched.
type outDirStore struct {
	path string
}

func (s *outDirStore) Name() string { return "sqlite" }

func (s *outDirStore) SaveRun(ctx context.Context, out domain.RunOutput) error {
	store, err := sqlite.New(s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer store.Close()

	return store.SaveRun(ctx, out)
}
