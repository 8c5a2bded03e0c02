package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaubrian/nyumba_stays/handlers"
	"github.com/kamaubrian/nyumba_stays/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	payments := api.Group("/payments")
	payments.Post("/webhook", handlers.HandlePaymentWebhook)

	payments.Post("/mpesa/initiate", middleware.Protected(), handlers.InitiateMpesaPayment)
	payments.Post("/paypal/create-order", middleware.Protected(), handlers.CreatePayPalOrderHandler)
	payments.Post("/paypal/capture-order", middleware.Protected(), handlers.CapturePayPalOrderHandler)
}
