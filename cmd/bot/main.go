package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/bot"
	"github.com/artur/pogoda-bot/internal/config"
	"github.com/artur/pogoda-bot/internal/database"
	"github.com/artur/pogoda-bot/internal/database/jsonstore"
	"github.com/artur/pogoda-bot/internal/database/repository"
	"github.com/artur/pogoda-bot/internal/handler"
	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/openmeteo"
	"github.com/artur/pogoda-bot/internal/scheduler"
	"github.com/artur/pogoda-bot/internal/server"
	"github.com/artur/pogoda-bot/internal/service"
	"github.com/artur/pogoda-bot/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config (overrides CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Sync() //nolint:errcheck

	if err := run(cfg, l); err != nil {
		l.Fatal("bot stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище профилей
	store, closer, err := openStore(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer closer.Close()

	// Сессии выбора города
	sessions, err := openSessions(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer sessions.Close()

	meteo := openmeteo.New(
		&http.Client{Timeout: cfg.OpenMeteo.HTTPTimeout},
		openmeteo.Config{
			GeocodeURL:  cfg.OpenMeteo.GeocodeURL,
			ForecastURL: cfg.OpenMeteo.ForecastURL,
			Language:    cfg.OpenMeteo.Language,
		},
		l.Named("openmeteo"),
	)

	sched := scheduler.New(l.Named("scheduler"), cfg.Scheduler.JobTimeout)

	b, err := bot.New(cfg.BotToken, cfg.ChannelUsername, l.Named("bot"))
	if err != nil {
		return err
	}

	svc := service.New(service.Deps{
		Store:      store,
		Sessions:   sessions,
		Geocoder:   meteo,
		Forecaster: meteo,
		Scheduler:  sched,
		Notifier:   b,
	}, l.Named("service"))

	restored, err := svc.RestoreSchedules(ctx)
	if err != nil {
		return err
	}
	l.Info("daily jobs restored", zap.Int("count", restored))
	sched.Start()

	// Порядок важен: CityHandler принимает любой текст и должен быть последним
	gate := handler.NewGate(b, b, cfg.JoinURL())
	b.RegisterHandler(gate.Wrap(handler.NewStartHandler(b)))
	b.RegisterHandler(handler.NewHelpHandler(b))
	b.RegisterHandler(handler.NewRepeatHandler(b, svc))
	b.RegisterHandler(gate.Wrap(handler.NewDailyHandler(b, svc)))
	b.RegisterHandler(handler.NewStopHandler(b, svc))
	b.RegisterHandler(handler.NewPickHandler(b, svc))
	b.RegisterHandler(handler.NewQuickDailyHandler(b, svc))
	b.RegisterHandler(handler.NewSubscriptionCheckHandler(b, b))
	b.RegisterHandler(gate.Wrap(handler.NewCityHandler(b, svc)))

	// Обработчики живут дольше сигнала: их отменяем только после b.Wait
	handlerCtx, cancelHandlers := context.WithCancel(context.Background())
	defer cancelHandlers()

	srv := server.New(handlerCtx, cfg.Webhook.Secret, b, l.Named("http"))
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Listen(fmt.Sprintf(":%d", cfg.Webhook.Port))
	}()

	webhook := false
	switch cfg.RunMode {
	case config.RunModePolling:
		go b.Run(ctx, handlerCtx)
	default:
		if url := cfg.WebhookURL(); url != "" {
			if err := b.SetWebhook(url); err != nil {
				return err
			}
			webhook = true
		} else {
			l.Warn("BASE_URL is not set, webhook is not registered")
		}
	}

	l.Info("bot started", zap.String("mode", cfg.RunMode), zap.Int("port", cfg.Webhook.Port))

	select {
	case <-ctx.Done():
		l.Info("shutting down")
	case err := <-srvErr:
		l.Error("http server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if webhook {
		if err := b.DeleteWebhook(true); err != nil {
			l.Warn("failed to delete webhook", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Warn("error during http shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	b.Wait(shutdownCtx)
	cancelHandlers()

	return nil
}

func openStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (service.ProfileStore, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.StoreSQLite:
		db, err := database.New(cfg.Storage.DBPath, l.Named("sqlite"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repository.NewProfileRepository(db.DB), db, nil
	case config.StoreJSON:
		s := jsonstore.New(cfg.Storage.DataFile, l.Named("store"))
		if err := s.Load(ctx); err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, errors.New("unknown storage driver: " + cfg.Storage.Driver)
}

func openSessions(ctx context.Context, cfg *config.Config, l *zap.Logger) (session.Store, error) {
	if cfg.Redis.URL == "" {
		l.Info("using in-memory sessions")
		return session.NewMemory(), nil
	}
	s, err := session.NewRedis(ctx, cfg.Redis.URL, "", cfg.Redis.SessionTTL)
	if err != nil {
		return nil, err
	}
	l.Info("using redis sessions")
	return s, nil
}
