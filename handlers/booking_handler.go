package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/messaging"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/kamaubrian/nyumba_stays/notifications"
	"github.com/kamaubrian/nyumba_stays/realtime"
	"github.com/kamaubrian/nyumba_stays/utils"
	"gorm.io/gorm"
)

type CreateBookingRequest struct {
	PropertyID  string `json:"property_id" validate:"required,uuid"`
	CheckIn     string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut    string `json:"check_out" validate:"required,datetime=2006-01-02"`
	GuestsCount int    `json:"guests_count" validate:"required,min=1"`
	Note        string `json:"note" validate:"omitempty,max=500"`
}

func CreateBooking(c *fiber.Ctx) error {
	guestID := currentUserID(c)

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	propertyID, _ := uuid.Parse(req.PropertyID)
	checkIn, _ := time.Parse("2006-01-02", req.CheckIn)
	checkOut, _ := time.Parse("2006-01-02", req.CheckOut)

	if !checkOut.After(checkIn) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Check-out must be after check-in"})
	}
	if checkIn.Before(time.Now().Truncate(24 * time.Hour)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Check-in cannot be in the past"})
	}

	var property models.Property
	if err := database.DB.Preload("Host").First(&property, "id = ? AND published = ?", propertyID, true).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Property not found"})
	}
	if property.HostID == guestID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot book your own property"})
	}
	if req.GuestsCount > property.MaxGuests {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("This property sleeps at most %d guests", property.MaxGuests)})
	}

	// Reject dates that overlap an existing confirmed or pending stay.
	var overlapping int64
	database.DB.Model(&models.Booking{}).
		Where("property_id = ? AND status IN ? AND check_in < ? AND check_out > ?",
			propertyID, []string{"confirmed", "pending_payment"}, checkOut, checkIn).
		Count(&overlapping)
	if overlapping > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Those dates are no longer available"})
	}

	booking := models.Booking{
		PropertyID:  propertyID,
		GuestID:     guestID,
		HostID:      property.HostID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		GuestsCount: req.GuestsCount,
		Currency:    property.Currency,
	}
	booking.TotalPrice = float64(booking.Nights()) * property.NightlyPrice

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		code, err := utils.GenerateUniqueReferenceCode(tx)
		if err != nil {
			return err
		}
		booking.ReferenceCode = code
		return tx.Create(&booking).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create booking"})
	}

	// A booking request also lands in the guest/host conversation so the
	// pair can negotiate details in one place.
	go createBookingRequestMessage(&booking, &property, req.Note)

	return c.Status(fiber.StatusCreated).JSON(booking)
}

func createBookingRequestMessage(booking *models.Booking, property *models.Property, note string) {
	if chatStore == nil {
		return
	}
	ctx := backgroundContext()

	conv, err := chatStore.FindOrCreateConversation(ctx, booking.GuestID, booking.HostID, &booking.PropertyID)
	if err != nil {
		log.Printf("🔥 Failed to open conversation for booking %s: %v", booking.ReferenceCode, err)
		return
	}

	content := fmt.Sprintf("Booking request %s for %s, %s to %s (%d guests).",
		booking.ReferenceCode,
		property.Title,
		booking.CheckIn.Format("Jan 02"),
		booking.CheckOut.Format("Jan 02, 2006"),
		booking.GuestsCount,
	)
	if note != "" {
		content = content + " Note: " + note
	}

	regardingType := "booking"
	msg, err := chatStore.CreateMessage(ctx, messaging.NewMessage{
		ConversationID: conv.ID,
		SenderID:       booking.GuestID,
		Content:        content,
		MessageType:    models.MessageTypeBookingRequest,
		RegardingType:  &regardingType,
		RegardingID:    &booking.ID,
	})
	if err != nil {
		log.Printf("🔥 Failed to record booking request message: %v", err)
		return
	}

	var guest models.User
	if err := database.DB.First(&guest, "id = ?", booking.GuestID).Error; err == nil && chatChannel != nil {
		view := realtime.NewMessageView(msg, guest.DisplayName())
		html := realtime.RenderFragment(chatRenderer, view)
		chatChannel.Topics().Broadcast(conv.ID, realtime.MessageCreatedPayload(view, html), uuid.Nil)
	}

	if notifyQueue != nil {
		if err := notifyQueue.EnqueueMessageCreated(ctx, msg.ID); err != nil {
			log.Printf("🔥 Failed to enqueue booking request notification: %v", err)
		}
	}
}

// DecideBooking lets the host accept or decline a pending request. Declining
// cancels the booking before any payment happens.
func DecideBooking(c *fiber.Ctx) error {
	hostID := currentUserID(c)
	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	type Request struct {
		Decision string `json:"decision" validate:"required,oneof=accept decline"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.Preload("Property").Preload("Guest").First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.HostID != hostID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the host can decide on this booking"})
	}
	if booking.Status != "pending_payment" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This booking is no longer pending"})
	}

	if req.Decision == "decline" {
		booking.Status = "cancelled"
		if err := database.DB.Save(&booking).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update booking"})
		}
		go notifications.SendEmail(
			booking.Guest.DisplayName(),
			booking.Guest.Email,
			fmt.Sprintf("Booking Request %s Declined", booking.ReferenceCode),
			fmt.Sprintf("<h1>Request Declined</h1><p>The host declined your request for <b>%s</b>. You have not been charged.</p>", booking.Property.Title),
		)
		return c.JSON(booking)
	}

	go notifications.SendEmail(
		booking.Guest.DisplayName(),
		booking.Guest.Email,
		fmt.Sprintf("Booking Request %s Accepted", booking.ReferenceCode),
		fmt.Sprintf("<h1>Request Accepted</h1><p>The host accepted your request for <b>%s</b>. Complete payment to confirm your stay.</p>", booking.Property.Title),
	)
	return c.JSON(booking)
}

func ListMyBookings(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var bookings []models.Booking
	err := database.DB.
		Preload("Property").
		Preload("Guest").
		Preload("Host").
		Where("guest_id = ? OR host_id = ?", userID, userID).
		Order("created_at desc").
		Find(&bookings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bookings"})
	}

	return c.JSON(bookings)
}

func GetBooking(c *fiber.Ctx) error {
	userID := currentUserID(c)
	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var booking models.Booking
	if err := database.DB.Preload("Property").Preload("Guest").Preload("Host").First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.GuestID != userID && booking.HostID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this booking"})
	}

	return c.JSON(booking)
}

func CancelBooking(c *fiber.Ctx) error {
	userID := currentUserID(c)
	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var booking models.Booking
	if err := database.DB.Preload("Property").Preload("Guest").Preload("Host").First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.GuestID != userID && booking.HostID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this booking"})
	}
	if booking.Status == "cancelled" || booking.Status == "completed" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This booking can no longer be cancelled"})
	}

	booking.Status = "cancelled"
	if err := database.DB.Save(&booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel booking"})
	}

	otherParty := booking.Host
	if userID == booking.HostID {
		otherParty = booking.Guest
	}
	go notifications.SendEmail(
		otherParty.DisplayName(),
		otherParty.Email,
		fmt.Sprintf("Booking %s Cancelled", booking.ReferenceCode),
		fmt.Sprintf("<h1>Booking Cancelled</h1><p>Booking <b>%s</b> for %s has been cancelled.</p>", booking.ReferenceCode, booking.Property.Title),
	)

	return c.JSON(booking)
}
