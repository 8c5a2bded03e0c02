package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaubrian/nyumba_stays/handlers"
	"github.com/kamaubrian/nyumba_stays/middleware"
)

func BookingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	bookings := api.Group("/bookings", middleware.Protected())
	bookings.Post("", handlers.CreateBooking)
	bookings.Get("", handlers.ListMyBookings)
	bookings.Get("/:id", handlers.GetBooking)
	bookings.Post("/:id/cancel", handlers.CancelBooking)
	bookings.Post("/:id/decision", handlers.DecideBooking)
}
