package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"

	"compsbot/internal/config"
	"compsbot/internal/http/handlers"
	"compsbot/internal/http/middleware"
	"compsbot/internal/infra/logging"
	"compsbot/internal/packet"
	"compsbot/internal/render"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config   config.Config
	Redis    *redis.Client
	Service  *packet.Service
	Renderer *render.Renderer
}

// New creates and configures the Fiber app.
func New(deps Deps) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		BodyLimit:             cfg.Limits.MaxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	middleware.Register(app, cfg)
	registerRoutes(app, deps)

	// Ensure all responses, including 404s, return JSON.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// registerRoutes mounts all route handlers.
func registerRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/v1")

	h := handlers.NewPacketHandler(deps.Config, deps.Redis, deps.Service, deps.Renderer)

	v1.Post("/comps", h.HandleComps)
	v1.Get("/chrome/stats", h.HandleChromeStats)

	v1.Get("/monitor", monitor.New())
}
