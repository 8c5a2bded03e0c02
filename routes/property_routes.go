package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaubrian/nyumba_stays/handlers"
	"github.com/kamaubrian/nyumba_stays/middleware"
)

func PropertyRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	properties := api.Group("/properties")
	properties.Get("", handlers.ListProperties)
	properties.Get("/:slug", handlers.GetPropertyBySlug)

	hosting := api.Group("/host/properties", middleware.Protected(), middleware.HostRequired())
	hosting.Get("", handlers.ListMyProperties)
	hosting.Post("", handlers.CreateProperty)
	hosting.Patch("/:id", handlers.UpdateProperty)
}
