package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"compsbot/internal/auth"
	"compsbot/internal/config"
	"compsbot/internal/http/server"
	"compsbot/internal/infra/logging"
	"compsbot/internal/packet"
	"compsbot/internal/render"
	"compsbot/internal/source"
	"compsbot/internal/telegram"
)

func main() {
	cfg := config.Load()
	applyEnvOverrides(&cfg)

	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)

	var rdb *redis.Client
	if cfg.Cache.RedisHost != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.PDFCacheDB,
		})
	}

	idleConnsClosed := make(chan struct{})

	if cfg.Auth.Enabled {
		if err := auth.LoadTokensFromPostgres(cfg.Auth.Postgres); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		go auth.RefreshTokensPeriodically(cfg.Auth.Postgres, time.Minute, idleConnsClosed)
	}

	src, err := source.New(cfg)
	if err != nil {
		logging.Error("Comps source init failed", "error", err)
		os.Exit(1)
	}

	renderer := render.New(cfg)
	defer renderer.Close()

	svc, err := packet.NewService(cfg, src, renderer)
	if err != nil {
		logging.Error("Pipeline init failed", "error", err)
		os.Exit(1)
	}

	if cfg.Telegram.Enabled {
		botCtx, botCancel := context.WithCancel(context.Background())
		defer botCancel()
		go func() {
			<-idleConnsClosed
			botCancel()
		}()

		client := telegram.NewClient(cfg, cfg.Telegram.Token)
		defer client.Close()
		bot := telegram.NewBot(cfg, client, svc)
		go bot.Run(botCtx)
	}

	app := server.New(server.Deps{Config: cfg, Redis: rdb, Service: svc, Renderer: renderer})

	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// applyEnvOverrides layers container-friendly env vars over the YAML config.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("PORT"); v != "" {
		if !strings.HasPrefix(v, ":") {
			v = ":" + v
		}
		cfg.Server.Port = v
	}
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("BOT_TOKEN")
	}
}

// startServer starts the Fiber app and listens for shutdown signals.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
