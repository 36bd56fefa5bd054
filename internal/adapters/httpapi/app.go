package httpapi

import (
	"errors"
	"expvar"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AppConfig configures the fiber application built by NewApp.
type AppConfig struct {
	// Gatherer backs /metrics; nil leaves the route unmounted.
	Gatherer prometheus.Gatherer

	// RequestLog receives one line per request; nil disables request logging.
	RequestLog io.Writer

	// DebugVars mounts the expvar handler at /debug/vars.
	DebugVars bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp builds the fiber application serving h plus /health and /metrics.
func NewApp(h *Handler, cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "timetable",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return writeError(c, code, err.Error())
		},
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.RequestLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
			Output: cfg.RequestLog,
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.DebugVars {
		app.Get("/debug/vars", adaptor.HTTPHandler(expvar.Handler()))
	}
	h.Register(app)
	return app
}
