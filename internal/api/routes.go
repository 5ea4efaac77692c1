package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)

	api := app.Group("/api")

	if !handler.localMode {
		auth := api.Group("/auth")
		auth.Post("/register", handler.Register)
		auth.Post("/login", handler.Login)
		auth.Post("/logout", handler.AuthRequired, handler.Logout)
		auth.Post("/change-password", handler.AuthRequired, handler.ChangePassword)
	}

	settings := api.Group("/settings", handler.AuthRequired)
	settings.Get("", handler.GetSettings)
	settings.Put("", handler.UpdateSettings)

	api.Get("/today", handler.AuthRequired, handler.GetToday)

	tasks := api.Group("/tasks", handler.AuthRequired)
	tasks.Post("", handler.CreateTask)
	tasks.Post("/defer-missed", handler.DeferMissedTasks)
	tasks.Patch("/:id", handler.UpdateTask)
	tasks.Delete("/:id", handler.DeleteTask)
	tasks.Post("/:id/schedule", handler.ScheduleTask)
	tasks.Post("/:id/bump", handler.BumpTask)
	tasks.Post("/:id/extend", handler.ExtendTask)
	tasks.Post("/:id/clear-time", handler.ClearTaskTime)
	tasks.Post("/:id/complete", handler.CompleteTask)
	tasks.Post("/:id/reopen", handler.ReopenTask)
	tasks.Post("/:id/defer", handler.DeferTask)

	api.Post("/windows/:date/archive", handler.AuthRequired, handler.ArchiveWindow)
	api.Get("/analytics", handler.AuthRequired, handler.GetAnalytics)
	api.Get("/deals", handler.GetDeals)

	app.Use(handler.NotFound)
}
