package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/notifykit/modules/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/channels"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/directory"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/notify/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
)

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.AppEnv, "notifyd"))
	logger.SetAsDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.LogAttrs(ctx, slog.LevelError, "service exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pgstore.Migrate(ctx, pool, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	storage, err := pgstore.New(pool)
	if err != nil {
		return err
	}

	dir, err := directory.New(cfg.Directory)
	if err != nil {
		return err
	}

	fanout, err := notify.NewFanout(storage, dir,
		notify.WithTypes(notify.RegisteredTypes()...),
		notify.WithMaxAttempts(cfg.Notify.MaxAttempts),
	)
	if err != nil {
		return err
	}

	router, err := buildRouter(cfg, redisClient, dir, log)
	if err != nil {
		return err
	}

	processor, err := notify.NewProcessor(storage, router,
		notify.WithProcessorLogger(log),
		notify.WithDispatchTimeout(cfg.Notify.DispatchTimeout),
		notify.WithLockTimeout(cfg.Notify.LockTimeout),
		notify.WithMaxConcurrent(cfg.Notify.MaxConcurrent),
		notify.WithBackoff(cfg.Notify.BackoffBase, cfg.Notify.BackoffCeiling),
	)
	if err != nil {
		return err
	}

	svc, err := dispatch.NewService(fanout, processor, storage, dispatch.WithLogger(log))
	if err != nil {
		return err
	}

	if cfg.CronSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.CronSchedule, func() {
			result, err := processor.Run(ctx, notify.DefaultBatchSize)
			if err != nil {
				log.LogAttrs(ctx, slog.LevelError, "scheduled processing failed", logger.Error(err))
				return
			}
			if result.Processed > 0 {
				log.LogAttrs(ctx, slog.LevelInfo, "scheduled processing pass",
					slog.Int("processed", result.Processed),
					slog.Int("succeeded", result.Succeeded),
					slog.Int("failed", result.Failed),
					slog.Int("retried", result.Retried),
				)
			}
		}); err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/notifications", svc.Handle())

	return httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, r)
}

// buildRouter registers every channel adapter the configuration allows.
// Email falls back to the logging dev sender outside production when no
// Postmark token is configured; gateway channels are skipped entirely
// without a gateway URL.
func buildRouter(cfg appConfig, redisClient goredis.UniversalClient, dir *directory.Client, log *slog.Logger) (*notify.Router, error) {
	router := notify.NewRouter()

	inApp, err := channels.NewInApp(redisClient)
	if err != nil {
		return nil, err
	}
	router.Register(inApp)

	sender, err := buildEmailSender(cfg, log)
	if err != nil {
		return nil, err
	}
	emailAdapter, err := channels.NewEmail(sender, dir)
	if err != nil {
		return nil, err
	}
	router.Register(emailAdapter)

	slack, err := channels.NewSlack(dir)
	if err != nil {
		return nil, err
	}
	teams, err := channels.NewTeams(dir)
	if err != nil {
		return nil, err
	}
	router.Register(slack, teams)

	if cfg.Gateway.BaseURL != "" {
		for _, ch := range []notify.Channel{notify.ChannelSMS, notify.ChannelWhatsApp, notify.ChannelPush} {
			gw, err := channels.NewGateway(ch, cfg.Gateway, dir)
			if err != nil {
				return nil, err
			}
			router.Register(gw)
		}
	}

	return router, nil
}

func buildEmailSender(cfg appConfig, log *slog.Logger) (email.EmailSender, error) {
	if cfg.Email.PostmarkServerToken == "" && cfg.AppEnv != "production" {
		return email.NewDevSender(log), nil
	}
	return email.NewPostmarkClient(cfg.Email)
}
