package main

import (
	"github.com/dmitrymomot/notifykit/pkg/channels"
	"github.com/dmitrymomot/notifykit/pkg/directory"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
)

// appConfig aggregates the env configuration of every component the
// service wires together.
type appConfig struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CronSchedule runs a processing pass on a schedule when set
	// (standard cron syntax, e.g. "@every 30s"). Empty disables the
	// built-in trigger; POST /process stays available either way.
	CronSchedule string `env:"NOTIFY_CRON_SCHEDULE" envDefault:"@every 30s"`

	HTTP      httpserver.Config
	PG        pg.Config
	Redis     redis.Config
	Notify    notify.Config
	Email     email.Config
	Gateway   channels.GatewayConfig
	Directory directory.Config
}
