package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaubrian/nyumba_stays/services"
)

// GetExchangeRates exposes the cached USD-base rates used for pricing.
func GetExchangeRates(c *fiber.Ctx) error {
	rates, err := services.FetchRates()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Exchange rates are temporarily unavailable"})
	}
	return c.JSON(fiber.Map{"base": "USD", "rates": rates})
}
