package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/minuteman/config"
	"github.com/otherjamesbrown/minuteman/credentials"
	"github.com/otherjamesbrown/minuteman/pkg/cache"
	"github.com/otherjamesbrown/minuteman/pkg/db"
	"github.com/otherjamesbrown/minuteman/pkg/events"
	"github.com/otherjamesbrown/minuteman/pkg/httpapi"
	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/notetaker"
	"github.com/otherjamesbrown/minuteman/pkg/observability"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
	"github.com/otherjamesbrown/minuteman/pkg/tracker"
)

// Serve command flags.
var (
	serveListenAddress string
	serveTimezone      string
	serveLogLevel      string
)

// shutdownGrace bounds how long in-flight requests and pollers get on exit.
const shutdownGrace = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the minuteman HTTP service.

The service schedules notetaker bots into meetings via the Nylas API
and polls each recording session in the background until its transcript
is available.

Configuration is read from ~/.minuteman/config.yaml and MINUTEMAN_*
environment variables. The API key falls back to the encrypted
credential store when not configured (see 'minuteman auth login').

Examples:
  minuteman serve
  minuteman serve --listen :9000
  minuteman serve --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListenAddress, "listen", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveTimezone, "timezone", "", "IANA timezone for schedule requests (overrides config)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if serveListenAddress != "" {
		cfg.ListenAddress = serveListenAddress
	}
	if serveTimezone != "" {
		cfg.Timezone = serveTimezone
	}
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	logger := logging.NewLogger(&logging.Config{
		Level:       logging.Level(cfg.Logging.Level),
		ServiceName: "minuteman",
		Environment: cfg.Logging.Environment,
		JSONFormat:  cfg.Logging.JSONFormat,
	})

	// The config API key wins; the encrypted credential store is the fallback
	// for workstation deployments.
	if cfg.Notetaker.APIKey == "" {
		if creds := loadStoredCredentials(logger); creds != nil {
			cfg.Notetaker.APIKey = creds.APIKey
			if cfg.Notetaker.GrantID == "" {
				cfg.Notetaker.GrantID = creds.GrantID
			}
		}
	}
	if cfg.Notetaker.APIKey == "" {
		return errors.New("no API key configured: set MINUTEMAN_API_KEY or run 'minuteman auth login'")
	}

	remote, err := notetaker.NewClient(notetaker.Options{
		BaseURL:        cfg.Notetaker.BaseURL,
		APIKey:         cfg.Notetaker.APIKey,
		GrantID:        cfg.Notetaker.GrantID,
		RequestTimeout: cfg.Notetaker.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating notetaker client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, pool, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer db.Close(pool)
	}

	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	metrics := observability.DefaultRecordingMetrics()
	if pool != nil {
		prometheus.MustRegister(db.NewPoolStatsCollector(pool, "minuteman"))
	}

	transcripts := cache.New()
	tracer := observability.NewTracer()

	supervisor := tracker.NewSupervisor(tracker.Options{
		Config: tracker.Config{
			MaxIterations: cfg.Polling.MaxIterations,
			PollInterval:  cfg.Polling.Interval,
			FetchTimeout:  cfg.Polling.FetchTimeout,
		},
		Remote:    remote,
		Store:     store,
		Cache:     transcripts,
		Publisher: publisher,
		Metrics:   metrics,
		Tracer:    tracer,
		Logger:    logger,
	})

	router := httpapi.NewRouter(httpapi.Options{
		Remote:    remote,
		Store:     store,
		Cache:     transcripts,
		Tracker:   supervisor,
		Publisher: publisher,
		Metrics:   metrics,
		Tracer:    tracer,
		Logger:    logger,
		Location:  cfg.Location(),
		Health:    healthCheck(pool),
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			logging.F("address", cfg.ListenAddress),
			logging.F("timezone", cfg.Timezone))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", logging.F("active_pollers", supervisor.Active()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", logging.Err(err))
	}
	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pollers still running at exit", logging.Err(err))
	}

	return nil
}

// buildStore selects the recordings backend: Postgres when a database block
// is configured, in-memory otherwise.
func buildStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (recordings.Store, *pgxpool.Pool, error) {
	if cfg.Database == nil {
		logger.Info("using in-memory recordings store")
		return recordings.NewMemoryStore(), nil, nil
	}

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := recordings.NewPostgresStore(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		db.Close(pool)
		return nil, nil, fmt.Errorf("migrating recordings schema: %w", err)
	}

	logger.Info("using postgres recordings store",
		logging.F("host", cfg.Database.Host),
		logging.F("database", cfg.Database.Database))
	return store, pool, nil
}

// buildPublisher creates the Redis event publisher when enabled. A nil
// publisher is valid and silently drops events.
func buildPublisher(cfg *config.Config, logger logging.Logger) (*events.Publisher, error) {
	if !cfg.Redis.Enabled {
		logger.Info("event publishing disabled")
		return nil, nil
	}

	publisher, err := events.NewPublisherFromConfig(events.PublisherConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	logger.Info("event publishing enabled",
		logging.F("redis_host", cfg.Redis.Host),
		logging.F("redis_port", cfg.Redis.Port))
	return publisher, nil
}

// healthCheck reports database reachability when a pool is in use.
func healthCheck(pool *pgxpool.Pool) httpapi.HealthChecker {
	if pool == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	}
}

// loadStoredCredentials reads the encrypted credential store, tolerating its
// absence.
func loadStoredCredentials(logger logging.Logger) *credentials.Credentials {
	store, err := credentials.NewStore()
	if err != nil {
		logger.Warn("credential store unavailable", logging.Err(err))
		return nil
	}

	creds, err := store.GetActiveCredential()
	if err != nil {
		if !errors.Is(err, credentials.ErrNoCredentials) {
			logger.Warn("loading stored credentials", logging.Err(err))
		}
		return nil
	}
	return creds
}
