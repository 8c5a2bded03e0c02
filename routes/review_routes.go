package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaubrian/nyumba_stays/handlers"
	"github.com/kamaubrian/nyumba_stays/middleware"
)

func ReviewRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/properties/:propertyId/reviews", handlers.ListPropertyReviews)
	api.Post("/reviews", middleware.Protected(), handlers.CreateReview)
}
