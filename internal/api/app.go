package api

import (
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the fiber app with sonic as the JSON codec and every route
// registered. Callers add their own access logging.
func NewApp(handler *Handler, middleware ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Daywindow",
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})

	app.Use(recover.New())
	for _, next := range middleware {
		app.Use(next)
	}
	RegisterRoutes(app, handler)
	return app
}
