// Package server поднимает HTTP-часть бота: вебхук Telegram, health и метрики.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dispatcher принимает обновления из вебхука.
type Dispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update)
}

type Server struct {
	app *fiber.App
	log *zap.Logger
}

// New собирает fiber-приложение. Обработка обновлений идёт в baseCtx,
// а не в контексте запроса: Telegram получает 200 сразу.
func New(baseCtx context.Context, secret string, d Dispatcher, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "pogoda-bot",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New(fiberlogger.Config{
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/health" },
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/webhook/:secret", func(c *fiber.Ctx) error {
		if c.Params("secret") != secret {
			return fiber.ErrNotFound
		}

		var update tgbotapi.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			log.Warn("bad webhook payload", zap.Error(err))
			return fiber.NewError(fiber.StatusBadRequest, "invalid update")
		}

		d.Dispatch(baseCtx, update)
		return c.SendStatus(fiber.StatusOK)
	})

	return &Server{app: app, log: log}
}

// App нужен тестам.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen блокируется до остановки сервера.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
