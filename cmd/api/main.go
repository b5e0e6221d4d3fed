package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolcrib/internal/api"
	"toolcrib/internal/config"
	"toolcrib/internal/database"
	"toolcrib/internal/domain"
	"toolcrib/internal/events"
	"toolcrib/internal/google"
	"toolcrib/internal/logging"
	"toolcrib/internal/metrics"
	"toolcrib/internal/repository"
	"toolcrib/internal/service"
	"toolcrib/internal/store"
	"toolcrib/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, baseLogger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "main")

	st, sqliteDB, err := store.Open(cfg, logging.Component(baseLogger, "store"))
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
		return err
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("store ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	startMetrics(ctx, cfg, logger)

	eventBus := events.NewEventBus()
	subscribeEventLog(eventBus, logging.Component(baseLogger, "events"))

	var syncWorker domain.SyncWorker
	if sheets := initGoogleSheets(ctx, cfg, logger); sheets != nil {
		w := worker.NewSheetsWorker(sheets, redisClient, worker.RetryPolicyFromConfig(cfg.Google), logging.Component(baseLogger, "sheets_worker"))
		go w.Start(ctx)
		syncWorker = w
	}

	inventory := service.NewInventoryService(st, eventBus, syncWorker, logging.Component(baseLogger, "inventory"))
	inventory.Refresh(ctx)

	drafts := service.NewDraftService(initDraftRepository(cfg, redisClient, baseLogger), logging.Component(baseLogger, "drafts"))

	httpServer, err := api.NewHTTPServer(cfg, inventory, drafts, logging.Component(baseLogger, "http"))
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	if sqliteDB != nil {
		startBackups(ctx, sqliteDB, cfg, logging.Component(baseLogger, "backup"))
	}

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initDraftRepository keeps drafts in Redis when it is reachable and in memory
// otherwise or while Redis is down.
func initDraftRepository(cfg *config.Config, redisClient *redis.Client, baseLogger *zerolog.Logger) domain.DraftRepository {
	memory := repository.NewMemoryDraftRepository(cfg.Drafts.TTL)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverDraftRepository(
		repository.NewRedisDraftRepository(redisClient, cfg.Drafts.TTL),
		memory,
		logging.Component(baseLogger, "drafts_repo"),
	)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.InventorySpreadsheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.InventorySpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		email, _ := google.GetServiceAccountEmail(cfg.Google.CredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("google sheets not reachable; share the spreadsheet with the service account")
		return nil
	}
	if err := sheets.EnsureHeaders(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets header setup failed")
	}

	logger.Info().Msg("google sheets connected")
	return sheets
}

func subscribeEventLog(bus *events.EventBus, logger *zerolog.Logger) {
	bus.SubscribeAll(func(e *events.Event) error {
		logger.Debug().Str("event_type", e.Type).RawJSON("payload", e.Payload).Msg("event")
		return nil
	},
		events.EventItemCreated,
		events.EventNotesUpdated,
		events.EventTransactionRecorded,
		events.EventItemDeleted,
		events.EventInventoryRestored,
	)
}

func startBackups(ctx context.Context, db *database.DB, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled {
		return
	}
	go database.NewBackupService(db, cfg.Backup, logger).Start(ctx)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.HTTP.Port).Str("title", cfg.App.Title).Msg("tool crib server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("tool crib server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
