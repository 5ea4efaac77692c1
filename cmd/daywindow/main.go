package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/terraincognita07/daywindow/internal/api"
	"github.com/terraincognita07/daywindow/internal/cache"
	"github.com/terraincognita07/daywindow/internal/cli"
	"github.com/terraincognita07/daywindow/internal/config"
	"github.com/terraincognita07/daywindow/internal/db"
	"github.com/terraincognita07/daywindow/internal/localstore"
	"github.com/terraincognita07/daywindow/internal/services"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// stores holds the repositories behind the HTTP handler and the background
// services. closers run in reverse order on shutdown.
type stores struct {
	users       *db.UserRepository
	preferences services.PreferencesRepository
	tasks       services.TaskRepository
	closers     []func() error
}

func (s *stores) Close() {
	for index := len(s.closers) - 1; index >= 0; index-- {
		if err := s.closers[index](); err != nil {
			log.WithError(err).Warn("close store failed")
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	configureLogging(cfg)

	if len(os.Args) > 1 {
		if err := runCommand(cfg, os.Args[1:]); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := serve(cfg); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func configureLogging(cfg config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetLevel(log.InfoLevel)
}

func runCommand(cfg config.Config, args []string) error {
	switch args[0] {
	case "reset-password":
		if len(args) != 2 {
			return errors.New("usage: daywindow reset-password <email>")
		}
		if cfg.LocalMode() {
			return errors.New("reset-password needs the sqlite store")
		}
		database, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
		defer closeDatabase(database)
		return cli.RunResetPasswordCommand(context.Background(), db.NewUserRepository(database), args[1], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(cfg config.Config) error {
	backing, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer backing.Close()

	tracerProvider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	options := api.Options{
		SecretKey:      cfg.SecretKey,
		CookieSecure:   cfg.CookieSecure,
		LocalMode:      cfg.LocalMode(),
		Preferences:    backing.preferences,
		Tasks:          backing.tasks,
		Deals:          services.NewDealsService(cfg.DealsFeedURL),
		TracerProvider: tracerProvider,
	}
	if backing.users != nil {
		options.Users = backing.users
	}
	handler, err := api.NewHandler(options)
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	app := api.NewApp(handler, logger.New(), compress.New())

	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()
	startBackgroundServices(lifecycleCtx, cfg, backing, tracerProvider)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown failed")
		}
	}()

	log.WithFields(log.Fields{
		"port":  cfg.Port,
		"store": cfg.Store,
		"cache": cfg.RedisURL != "",
	}).Info("daywindow listening")
	return app.Listen(":" + cfg.Port)
}

func openStores(cfg config.Config) (*stores, error) {
	backing := &stores{}

	if cfg.LocalMode() {
		tasks, err := localstore.NewTaskStore(cfg.LocalStorePath)
		if err != nil {
			return nil, fmt.Errorf("local store init failed: %w", err)
		}
		backing.tasks = tasks
		backing.preferences = localstore.NewPreferencesStore()
	} else {
		database, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		backing.closers = append(backing.closers, func() error {
			closeDatabase(database)
			return nil
		})
		repositories := db.NewRepositories(database)
		backing.users = repositories.Users
		backing.preferences = repositories.Preferences
		backing.tasks = repositories.Tasks
	}

	if cfg.RedisURL != "" {
		redisOptions, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			backing.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(redisOptions)
		backing.closers = append(backing.closers, client.Close)
		backing.tasks = cache.NewTaskCache(backing.tasks, client, cfg.CacheTTL)
	}
	return backing, nil
}

func startBackgroundServices(ctx context.Context, cfg config.Config, backing *stores, tracerProvider *sdktrace.TracerProvider) {
	taskService := services.NewTaskService(backing.tasks).WithTracerProvider(tracerProvider)
	services.NewRolloverService(backing.preferences, taskService, cfg.RolloverInterval).Start(ctx)

	var sender services.ReminderSender
	if telegram := services.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID); telegram != nil {
		sender = telegram
	}
	lead := time.Duration(cfg.ReminderLeadMinutes) * time.Minute
	reminders := services.NewReminderService(backing.preferences, backing.tasks, sender, lead, cfg.ReminderInterval)
	if !reminders.Enabled() {
		log.Info("reminders disabled: TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set")
		return
	}
	reminders.Start(ctx)
}

func closeDatabase(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("close database failed")
	}
}
