package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/subosito/gotenv"

	"github.com/vkamlov/dropdesk-bot/internal/bot"
	"github.com/vkamlov/dropdesk-bot/internal/config"
	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/access"
	"github.com/vkamlov/dropdesk-bot/internal/domain/banks"
	"github.com/vkamlov/dropdesk-bot/internal/domain/duplicates"
	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/groups"
	"github.com/vkamlov/dropdesk-bot/internal/domain/pool"
	"github.com/vkamlov/dropdesk-bot/internal/domain/shifts"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
	"github.com/vkamlov/dropdesk-bot/internal/infra/db"
	httpx "github.com/vkamlov/dropdesk-bot/internal/infra/http"
	"github.com/vkamlov/dropdesk-bot/internal/infra/logger"
	"github.com/vkamlov/dropdesk-bot/internal/scheduler"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load() // .env рядом с бинарём, если есть

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/example.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Error("bad timezone", "tz", cfg.App.Timezone, "err", err)
		return
	}

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer dbpool.Close()
	log.Info("db connected")

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram auth failed", "err", err)
		return
	}
	log.Info("telegram authorized", "bot", api.Self.UserName)

	b := bot.New(api, log, loc, cfg.Telegram.DeveloperIDs,
		dialog.NewRepo(dbpool),
		users.NewRepo(dbpool),
		banks.NewRepo(dbpool),
		forms.NewRepo(dbpool),
		duplicates.NewRepo(dbpool),
		shifts.NewRepo(dbpool),
		pool.NewRepo(dbpool),
		access.NewRepo(dbpool),
		groups.NewRepo(dbpool),
	)

	sched := scheduler.New(loc, log)
	if err := sched.Start(cfg.Cleanup.Schedule, b); err != nil {
		log.Error("scheduler failed", "err", err)
		return
	}
	defer sched.Stop()

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	go func() {
		if err := b.Run(ctx, 30); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("bot stopped", "err", err)
		}
	}()
	log.Info("bot started", "tz", loc.String())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
