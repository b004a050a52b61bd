package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"flowershop/internal/api"
	"flowershop/internal/bot"
	"flowershop/internal/config"
	"flowershop/internal/database"
	"flowershop/internal/domain"
	"flowershop/internal/events"
	"flowershop/internal/geocoder"
	"flowershop/internal/jobs"
	"flowershop/internal/logging"
	"flowershop/internal/metrics"
	"flowershop/internal/models"
	"flowershop/internal/repository"
	"flowershop/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Shop.Location()
	clock := service.SystemClock(loc)

	redisClient, store := initStore(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	sender := initTelegram(cfg, logger)
	notifier := service.NewNotifier(sender, db, db, service.NotifierConfig{
		ChannelID:   cfg.Telegram.ChannelID,
		SendTimeout: cfg.Telegram.SendTimeout,
		FanoutDelay: cfg.Telegram.FanoutDelay,
	}, logging.Component(logger, "notifier"))

	eventBus := events.NewEventBus(logging.Component(logger, "events"))
	notifier.Subscribe(eventBus)

	var geo domain.Geocoder
	if cfg.Geocoder.APIKey != "" {
		geo = geocoder.NewYandex(cfg.Geocoder.APIKey, cfg.Geocoder.BaseURL, cfg.Geocoder.Timeout, logging.Component(logger, "geocoder"))
	}

	slots := service.NewSlotService(db, clock, logger)
	if err := syncSlots(ctx, slots, logger); err != nil {
		return err
	}

	consultations := service.NewConsultationService(db, db, notifier, eventBus, clock, logger)
	svc := api.Services{
		Catalog: service.NewCatalogService(db, store, service.CatalogConfig{
			PageSize:     cfg.Shop.CatalogPageSize,
			LoadMoreSize: cfg.Shop.LoadMoreSize,
			FeaturedTTL:  cfg.Cache.FeaturedTTL,
		}, logger),
		Slots:         slots,
		Orders:        service.NewOrderService(db, db, db, slots, store, notifier, eventBus, clock, logger),
		Sessions:      service.NewSessionService(store, slots, clock, logger),
		Assignment:    service.NewAssignmentService(db, db, notifier, eventBus, logger),
		Consultations: consultations,
		Shops:         service.NewShopService(db, geo, store, cfg.Cache.ShopsTTL, cfg.Shop.MapCenter, logger),
		Users:         service.NewUserService(db, logger),
		Notifications: db,
		SessionStore:  store,
	}

	scheduler := jobs.NewScheduler(loc, logging.Component(logger, "jobs"))
	backup := database.NewBackupService(db, cfg.Backup, logger)
	if err := jobs.Register(scheduler, backup, cfg.Backup.Schedule, consultations, cfg.Shop.ReminderSchedule); err != nil {
		logger.Error().Err(err).Msg("register jobs")
		return err
	}
	scheduler.Start()

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, logging.Component(logger, "http"))
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("timezone", loc.String()).Msg("Flower shop started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	scheduler.Stop(shutdownCtx)

	logger.Info().Msg("Shutdown complete.")
	return nil
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

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "shop-main"), closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	dirs := []string{filepath.Dir(cfg.Database.Path), cfg.Exports.Path}
	if cfg.Backup.Enabled {
		dirs = append(dirs, cfg.Backup.StoragePath)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("create directory")
			return err
		}
	}
	return nil
}

// syncSlots upserts the delivery windows from the slots file. A missing file keeps the stored slots.
func syncSlots(ctx context.Context, slots *service.SlotService, logger *zerolog.Logger) error {
	slotsPath := os.Getenv("SLOTS_PATH")
	if slotsPath == "" {
		slotsPath = "configs/slots.yaml"
	}
	data, err := os.ReadFile(slotsPath)
	if os.IsNotExist(err) {
		logger.Warn().Str("slots_path", slotsPath).Msg("slots file not found, using stored delivery slots")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Str("slots_path", slotsPath).Msg("read slots")
		return err
	}

	var slotsConfig struct {
		Slots []models.DeliveryTimeSlot `yaml:"slots"`
	}
	if err := yaml.Unmarshal(data, &slotsConfig); err != nil {
		logger.Error().Err(err).Str("slots_path", slotsPath).Msg("parse slots")
		return err
	}
	return slots.Sync(ctx, slotsConfig.Slots)
}

// initStore puts Redis in front of the in-memory store. Without Redis the memory store serves alone.
func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, repository.Store) {
	memory := repository.NewMemoryStore(cfg.Cache.SessionTTL)
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, using in-memory cache")
		return nil, memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, starting on in-memory fallback")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisStore(client, cfg.Cache.SessionTTL)
	return client, repository.NewFailoverStore(primary, memory, logging.Component(logger, "cache"))
}

// initTelegram returns nil when no token is configured; sends are then recorded as failed.
func initTelegram(cfg *config.Config, logger *zerolog.Logger) domain.TelegramSender {
	if !cfg.Telegram.Enabled() {
		logger.Warn().Msg("telegram bot token is not set, notifications are disabled")
		return nil
	}

	sender, err := bot.NewBotAPI(cfg.Telegram.BotToken, cfg.Telegram.SendTimeout, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot init failed, notifications are disabled")
		return nil
	}
	logger.Info().Str("bot", sender.GetSelf().UserName).Msg("telegram bot authorized")
	return sender
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
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
