package handlers

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/kamaubrian/nyumba_stays/notifications"
	"github.com/kamaubrian/nyumba_stays/payments"
	"github.com/kamaubrian/nyumba_stays/services"
	"gorm.io/gorm"
)

type InitiateMpesaRequest struct {
	BookingID   string `json:"booking_id" validate:"required,uuid"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

func InitiateMpesaPayment(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req InitiateMpesaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	bookingID, _ := uuid.Parse(req.BookingID)
	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.GuestID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the guest can pay for this booking"})
	}
	if booking.Status != "pending_payment" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This booking is not awaiting payment"})
	}

	// M-Pesa settles in KES only.
	amountKES := booking.TotalPrice
	if booking.Currency == "USD" {
		converted, err := services.ConvertUSDToKES(booking.TotalPrice)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to convert currency"})
		}
		amountKES = converted
	}

	payment := models.Payment{
		BookingID: &booking.ID,
		PayerID:   userID,
		Amount:    amountKES,
		Currency:  "KES",
		Provider:  "mpesa",
	}
	if err := database.DB.Create(&payment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create payment record"})
	}

	stkResp, err := payments.InitiateMpesaSTKPush(amountKES, req.PhoneNumber, payment.ID.String())
	if err != nil {
		database.DB.Model(&payment).Update("status", "failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	database.DB.Model(&payment).Update("merchant_request_id", stkResp.Response.MerchantRequestID)

	return c.JSON(fiber.Map{
		"message":    "STK push sent. Enter your M-Pesa PIN to complete payment.",
		"payment_id": payment.ID,
	})
}

// HandlePaymentWebhook receives the KCB Buni callback for an STK push.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	type CallbackPayload struct {
		Response struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			ResultCode        string `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			MpesaReceipt      string `json:"MpesaReceiptNumber"`
			InvoiceNumber     string `json:"InvoiceNumber"`
		} `json:"response"`
	}
	var payload CallbackPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("🔥 Failed to parse payment webhook: %v", err)
		return c.SendStatus(fiber.StatusBadRequest)
	}

	// The invoice number carries "<account>-<paymentID>".
	paymentRef := payload.Response.InvoiceNumber
	if parts := strings.SplitN(paymentRef, "-", 2); len(parts) == 2 {
		paymentRef = parts[1]
	}

	paymentID, err := uuid.Parse(paymentRef)
	if err != nil {
		log.Printf("🔥 Payment webhook with unparseable invoice number: %s", payload.Response.InvoiceNumber)
		return c.SendStatus(fiber.StatusOK)
	}

	var payment models.Payment
	if err := database.DB.First(&payment, "id = ?", paymentID).Error; err != nil {
		log.Printf("🔥 Payment webhook for unknown payment %s", paymentID)
		return c.SendStatus(fiber.StatusOK)
	}
	if payment.Status == "completed" {
		return c.SendStatus(fiber.StatusOK)
	}

	if payload.Response.ResultCode != "0" {
		log.Printf("⚠️ Payment %s failed: %s", payment.ID, payload.Response.ResultDesc)
		database.DB.Model(&payment).Update("status", "failed")
		return c.SendStatus(fiber.StatusOK)
	}

	if err := completePayment(&payment, payload.Response.MpesaReceipt); err != nil {
		log.Printf("🔥 Failed to complete payment %s: %v", payment.ID, err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}

type CreatePayPalOrderRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

func CreatePayPalOrderHandler(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req CreatePayPalOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	bookingID, _ := uuid.Parse(req.BookingID)
	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.GuestID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the guest can pay for this booking"})
	}
	if booking.Status != "pending_payment" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This booking is not awaiting payment"})
	}

	// PayPal settles in USD.
	amountUSD := booking.TotalPrice
	if booking.Currency == "KES" {
		converted, err := services.ConvertKESToUSD(booking.TotalPrice)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to convert currency"})
		}
		amountUSD = converted
	}

	order, err := payments.CreatePayPalOrder(amountUSD, "USD")
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to create PayPal order"})
	}

	payment := models.Payment{
		BookingID:       &booking.ID,
		PayerID:         userID,
		Amount:          amountUSD,
		Currency:        "USD",
		Provider:        "paypal",
		ProviderOrderID: &order.ID,
	}
	if err := database.DB.Create(&payment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create payment record"})
	}

	return c.JSON(fiber.Map{"order_id": order.ID, "payment_id": payment.ID})
}

func CapturePayPalOrderHandler(c *fiber.Ctx) error {
	userID := currentUserID(c)

	type Request struct {
		OrderID string `json:"order_id" validate:"required"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var payment models.Payment
	if err := database.DB.First(&payment, "provider_order_id = ? AND payer_id = ?", req.OrderID, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
	}
	if payment.Status == "completed" {
		return c.JSON(fiber.Map{"message": "Payment already completed"})
	}

	order, err := payments.CapturePayPalOrder(req.OrderID)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to capture PayPal order"})
	}
	if order.Status != "COMPLETED" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("PayPal order not completed: %s", order.Status)})
	}

	if err := completePayment(&payment, order.ID); err != nil {
		log.Printf("🔥 Failed to complete PayPal payment %s: %v", payment.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to finalize payment"})
	}

	return c.JSON(fiber.Map{"message": "Payment completed. Your booking is confirmed!"})
}

// completePayment marks the payment complete, confirms the booking, and kicks
// off the receipt and confirmation emails.
func completePayment(payment *models.Payment, providerTxnID string) error {
	var booking models.Booking
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		payment.Status = "completed"
		payment.ProviderTxnID = &providerTxnID
		if err := tx.Save(payment).Error; err != nil {
			return err
		}
		if payment.BookingID == nil {
			return nil
		}
		if err := tx.Preload("Guest").Preload("Host").Preload("Property").First(&booking, "id = ?", *payment.BookingID).Error; err != nil {
			return err
		}
		booking.Status = "confirmed"
		return tx.Save(&booking).Error
	})
	if err != nil {
		return err
	}
	if payment.BookingID == nil {
		return nil
	}

	log.Printf("✅ Payment %s completed, booking %s confirmed", payment.ID, booking.ReferenceCode)

	go services.GenerateBookingReceipt(*payment, booking)

	go notifications.SendEmail(
		booking.Guest.DisplayName(),
		booking.Guest.Email,
		fmt.Sprintf("Booking Confirmed: %s", booking.Property.Title),
		fmt.Sprintf("<h1>You're all set!</h1><p>Your booking <b>%s</b> at %s is confirmed for %s to %s.</p>",
			booking.ReferenceCode, booking.Property.Title,
			booking.CheckIn.Format("Jan 02"), booking.CheckOut.Format("Jan 02, 2006")),
	)
	go notifications.SendEmail(
		booking.Host.DisplayName(),
		booking.Host.Email,
		fmt.Sprintf("New Confirmed Booking: %s", booking.ReferenceCode),
		fmt.Sprintf("<h1>New Booking</h1><p>%s has booked <b>%s</b> from %s to %s.</p>",
			booking.Guest.DisplayName(), booking.Property.Title,
			booking.CheckIn.Format("Jan 02"), booking.CheckOut.Format("Jan 02, 2006")),
	)

	return nil
}
