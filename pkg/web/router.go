package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts every API route on the app. All routes except the
// root banner and health check require a tenant.
func RegisterRoutes(app *fiber.App, handlers *APIHandlers) {
	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FieldFlow API")
	})

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/", RequireTenant())

	rules := api.Group("/rules")
	rules.Get("/", handlers.GetRules)
	rules.Post("/", handlers.CreateRule)
	rules.Get("/:id", handlers.GetRule)
	rules.Patch("/:id", handlers.UpdateRule)
	rules.Delete("/:id", handlers.DeleteRule)

	templates := api.Group("/rule-templates")
	templates.Get("/", handlers.GetTemplates)
	templates.Post("/:name/instantiate", handlers.InstantiateTemplate)

	api.Post("/triggers", handlers.Trigger)

	executions := api.Group("/executions")
	executions.Get("/", handlers.GetExecutions)
	executions.Get("/:id", handlers.GetExecution)

	notifications := api.Group("/notifications")
	notifications.Get("/", handlers.GetNotifications)
	notifications.Post("/", handlers.SendNotification)
	notifications.Get("/unread-count", handlers.GetUnreadCount)
	notifications.Post("/:id/read", handlers.MarkNotificationRead)
}
