package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hivewatch/alerts/internal/api"
	"github.com/hivewatch/alerts/internal/api/health"
	"github.com/hivewatch/alerts/internal/delivery"
	"github.com/hivewatch/alerts/internal/logging"
	"github.com/hivewatch/alerts/internal/metrics"
	"github.com/hivewatch/alerts/internal/models"
	"github.com/hivewatch/alerts/internal/notifier"
	"github.com/hivewatch/alerts/internal/storage"
	"github.com/hivewatch/alerts/internal/telegram"
	"github.com/hivewatch/alerts/pkg/config"
)

// app holds the long-lived dependencies shared by the subcommands.
type app struct {
	cfg        *Config
	logger     *slog.Logger
	store      *storage.SQLStorage
	senders    *notifier.Registry
	bot        *tgbotapi.BotAPI
	redis      *redis.Client
	engine     *delivery.Engine
	reconciler *delivery.Reconciler
}

func newLogger(cfg *Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  logging.Format(cfg.Log.Format),
		Env:     cfg.Log.Env,
		Service: "alerts",
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}

// openStore opens the configured database. The SQLite directory is created
// when missing.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*storage.SQLStorage, error) {
	dsn := cfg.Database.DSN
	if cfg.Database.Driver == "sqlite" || cfg.Database.Driver == "sqlite3" {
		dsn = cfg.Database.Path
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := storage.New(cfg.Database.Driver, dsn, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func newApp(ctx context.Context, cfg *Config) (_ *app, err error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.store, err = openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err = a.store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database initialized", "driver", a.store.Driver())

	a.senders, a.bot = buildSenders(ctx, cfg, logger)
	logger.Info("senders registered", "channels", a.senders.Channels())

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a.engine = delivery.NewEngine(a.store, a.senders, logger,
		delivery.WithLocation(loc),
		delivery.WithSubjectPrefix(cfg.Delivery.SubjectPrefix),
		delivery.WithWrapMidnight(cfg.Delivery.WrapMidnight),
	)

	var locker delivery.Locker
	if cfg.Redis.URL != "" {
		if a.redis, err = delivery.ConnectRedis(ctx, cfg.Redis.URL); err != nil {
			return nil, err
		}
		locker = delivery.NewRedisLocker(a.redis, logger)
		logger.Info("distributed retry lock enabled")
	}
	a.reconciler = delivery.NewReconciler(a.engine, locker, duration(cfg.Retry.LockTTL))

	return a, nil
}

// buildSenders constructs one sender per channel. Channels whose provider
// is not configured, or fails to initialize, get a sender that records
// every attempt as failed.
func buildSenders(ctx context.Context, cfg *Config, logger *slog.Logger) (*notifier.Registry, *tgbotapi.BotAPI) {
	throttle := notifier.RateLimitConfig{
		MaxPerWindow: cfg.Throttle.MaxPerWindow,
		Window:       duration(cfg.Throttle.Window),
		Enabled:      !cfg.Throttle.Disabled,
	}
	registry := notifier.NewRegistry()

	register := func(kind models.ChannelKind, provider string, build func() (notifier.Sender, error)) {
		sender, err := build()
		if err != nil {
			if errors.Is(err, notifier.ErrNotConfigured) {
				logger.Warn("channel provider not configured", "channel", kind, "provider", provider)
			} else {
				logger.Error("channel provider failed to initialize", "channel", kind, "provider", provider, "error", err)
			}
			registry.Register(notifier.NewDisabledSender(kind, provider))
			return
		}
		registry.Register(notifier.NewThrottle(sender, throttle))
		logger.Info("channel provider ready", "channel", kind, "provider", provider)
	}

	switch cfg.Email.Provider {
	case "postmark":
		register(models.ChannelEmail, "Postmark", func() (notifier.Sender, error) {
			if cfg.Email.Postmark.ServerToken == "" {
				return nil, notifier.ErrNotConfigured
			}
			return notifier.NewPostmarkSender(notifier.PostmarkConfig{
				ServerToken:  cfg.Email.Postmark.ServerToken,
				AccountToken: cfg.Email.Postmark.AccountToken,
				From:         cfg.Email.From,
				Tag:          cfg.Email.Postmark.Tag,
			})
		})
	default:
		register(models.ChannelEmail, "SES", func() (notifier.Sender, error) {
			if cfg.Email.From == "" {
				return nil, notifier.ErrNotConfigured
			}
			return notifier.NewSESSender(ctx, notifier.SESConfig{
				Region:          cfg.Email.SES.Region,
				AccessKeyID:     cfg.Email.SES.AccessKeyID,
				SecretAccessKey: cfg.Email.SES.SecretAccessKey,
				From:            cfg.Email.From,
				Endpoint:        cfg.Email.SES.Endpoint,
			})
		})
	}

	register(models.ChannelSMS, "Twilio", func() (notifier.Sender, error) {
		if cfg.SMS.AccountSID == "" {
			return nil, notifier.ErrNotConfigured
		}
		return notifier.NewSMSSender(notifier.TwilioConfig{
			AccountSID:          cfg.SMS.AccountSID,
			AuthToken:           cfg.SMS.AuthToken,
			MessagingServiceSID: cfg.SMS.MessagingServiceSID,
		})
	})

	var bot *tgbotapi.BotAPI
	register(models.ChannelTelegram, "Telegram", func() (notifier.Sender, error) {
		if cfg.Telegram.BotToken == "" {
			return nil, notifier.ErrNotConfigured
		}
		b, err := notifier.NewTelegramBot(notifier.TelegramConfig{BotToken: cfg.Telegram.BotToken})
		if err != nil {
			return nil, err
		}
		bot = b
		return notifier.NewTelegramSender(b), nil
	})

	return registry, bot
}

// Serve runs every long-lived component until ctx is cancelled or one fails.
func (a *app) Serve(ctx context.Context) error {
	cfg := a.cfg
	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	apiServer, err := api.New(&api.Config{
		Address:          cfg.Server.HTTPAddress,
		RateLimitPerUser: cfg.Server.RateLimitPerUser,
		MaxRetries:       cfg.Retry.MaxRetries,
		RequestTimeout:   duration(cfg.Server.RequestTimeout),
		Verbose:          cfg.Verbose,
	}, a.store, a.engine, a.reconciler, a.logger)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}
	if a.redis != nil {
		apiServer.RegisterHealthChecker(health.NewRedisChecker(a.redis))
	}

	if n, err := a.engine.EvaluateRules(ctx); err != nil {
		a.logger.Warn("alert rule evaluation failed", "error", err)
	} else {
		a.logger.Info("alert rules loaded", "enabled", n)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	if cfg.Server.MetricsAddress != "-" {
		ms := metrics.NewServer(cfg.Server.MetricsAddress, a.logger)
		g.Go(ms.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ms.Shutdown(shutdownCtx)
		})
	}

	if cfg.Retry.Enabled {
		scheduler := delivery.NewScheduler(a.reconciler, delivery.SchedulerConfig{
			Interval:   duration(cfg.Retry.Interval),
			Timeout:    duration(cfg.Retry.Timeout),
			MaxRetries: cfg.Retry.MaxRetries,
		})
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	if a.bot != nil && cfg.Telegram.LinkChats {
		linker := telegram.NewLinker(a.bot, a.store.Channels(), a.logger, cfg.Telegram.PollTimeout)
		g.Go(func() error {
			return linker.Run(gctx)
		})
	}

	a.logger.Info("starting alerts-server", "version", config.Version, "http", cfg.Server.HTTPAddress)
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// Close releases senders and connections in reverse order of creation.
func (a *app) Close() {
	if a.senders != nil {
		if err := a.senders.Close(); err != nil {
			a.logger.Warn("close senders", "error", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
