package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/export"
	"salonbook/internal/google"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/repository"
	"salonbook/internal/service"
	"salonbook/internal/worker"

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
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	catalog := service.NewCatalogService(db, time.Minute, logging.Component(&logger, "catalog"))
	if err := loadCatalog(ctx, cfg, catalog, &logger); err != nil {
		return err
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient, drafts := initDrafts(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	var syncWorker domain.SyncWorker
	if sheetsService := initGoogleSheets(ctx, cfg, db, &logger); sheetsService != nil {
		sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.DefaultRetryPolicy(), logging.Component(&logger, "sheets-worker"))
		if n, err := sheetsWorker.RequeueFailed(ctx); err != nil {
			logger.Warn().Err(err).Msg("requeue failed sync tasks")
		} else if n > 0 {
			logger.Info().Int64("tasks", n).Msg("failed sync tasks requeued")
		}
		go sheetsWorker.Start(ctx)
		syncWorker = sheetsWorker
	}

	eventBus := events.NewEventBus()
	eventBus.SubscribeAll(events.LogHandler(logging.Component(&logger, "audit")))

	bookings := service.NewBookingService(db, eventBus, syncWorker, cfg.Salon, logging.Component(&logger, "booking"))

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	grpcServer, err := api.NewGRPCServer(&cfg.API, bookings, catalog, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Bookings: bookings,
		Drafts:   service.NewDraftService(drafts, db, cfg.Drafts, logging.Component(&logger, "drafts")),
		Catalog:  catalog,
		Exporter: export.NewExporter(cfg.Exports.Path, cfg.Salon, &logger),
	}, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

// loadCatalog seeds services and the staff roster. Services listed inline in
// the main config are used when there is no catalogue file.
func loadCatalog(ctx context.Context, cfg *config.Config, catalog *service.CatalogService, logger *zerolog.Logger) error {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = cfg.Salon.CatalogPath
	}

	seed, err := config.LoadCatalog(catalogPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && len(cfg.Services) > 0:
		logger.Warn().Str("catalog_path", catalogPath).Msg("catalogue file not found, using services from config")
		seed = &config.Catalog{Services: cfg.Services}
	case err != nil:
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("load catalogue")
		return err
	}

	if err := catalog.Load(ctx, seed.Services); err != nil {
		logger.Error().Err(err).Msg("sync services")
		return err
	}
	if len(seed.Staff) == 0 {
		return nil
	}

	staff := make([]models.Staff, 0, len(seed.Staff))
	weekdays := make(map[int64][]time.Weekday, len(seed.Staff))
	for _, entry := range seed.Staff {
		staff = append(staff, entry.Staff)
		if entry.Weekdays == nil {
			continue
		}
		days, err := entry.WorkingDays()
		if err != nil {
			return err
		}
		weekdays[entry.ID] = days
	}
	if err := catalog.LoadRoster(ctx, staff, weekdays); err != nil {
		logger.Error().Err(err).Msg("sync staff roster")
		return err
	}
	return nil
}

// initDrafts keeps drafts in Redis when it is reachable and falls back to
// process memory otherwise.
func initDrafts(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.DraftRepository) {
	ttl := time.Duration(cfg.Drafts.TTL) * time.Second
	fallback := repository.NewMemoryDraftRepository(ttl)
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, drafts kept in memory")
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisDraftRepository(redisClient, ttl)
	return redisClient, repository.NewFailoverDraftRepository(primary, fallback, logging.Component(logger, "drafts-store"))
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		ctx,
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.BookingSpreadSheetID,
		cfg.Google.SheetName,
		cfg.Salon.Location(),
		logging.Component(logger, "sheets"),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}

	if cfg.Google.ResyncDays > 0 {
		now := time.Now().In(cfg.Salon.Location())
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		upcoming, err := db.GetBookingsByDateRange(ctx, from, from.AddDate(0, 0, cfg.Google.ResyncDays))
		if err != nil {
			logger.Warn().Err(err).Msg("load bookings for sheet resync")
		} else if err := sheetsService.ReplaceAll(ctx, upcoming); err != nil {
			logger.Warn().Err(err).Msg("sheet resync failed")
		} else {
			logger.Info().Int("bookings", len(upcoming)).Msg("sheet resynced")
		}
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("warm up sheet row cache")
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
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
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
