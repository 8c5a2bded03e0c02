package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/kamaubrian/nyumba_stays/notifications"
)

// SendCheckInReminders emails guests and hosts the day before check-in.
func SendCheckInReminders() {
	log.Println("Running job: SendCheckInReminders...")

	now := time.Now()
	lowerBound := now.Add(24 * time.Hour)
	upperBound := now.Add(25 * time.Hour)

	var upcomingBookings []models.Booking

	err := database.DB.
		Preload("Guest").
		Preload("Host").
		Preload("Property").
		Where("status = ? AND check_in BETWEEN ? AND ?", "confirmed", lowerBound, upperBound).
		Find(&upcomingBookings).Error

	if err != nil {
		log.Printf("Error checking for upcoming check-ins: %v", err)
		return
	}

	if len(upcomingBookings) == 0 {
		return
	}

	for _, booking := range upcomingBookings {
		log.Printf("Sending check-in reminder for booking %s", booking.ReferenceCode)

		guestSubject := "Reminder: Your Stay Starts Tomorrow!"
		guestBody := fmt.Sprintf(
			"<h1>Check-in Reminder</h1><p>Hi %s,</p><p>Your stay at <b>%s</b> starts tomorrow (%s). Safe travels!</p>",
			booking.Guest.DisplayName(),
			booking.Property.Title,
			booking.CheckIn.Format("Monday, January 2"),
		)
		hostSubject := "Reminder: A Guest Arrives Tomorrow"
		hostBody := fmt.Sprintf(
			"<h1>Guest Arrival</h1><p>Hi %s,</p><p>%s checks in to <b>%s</b> tomorrow. Please have the place ready.</p>",
			booking.Host.DisplayName(),
			booking.Guest.DisplayName(),
			booking.Property.Title,
		)

		go notifications.SendEmail(booking.Guest.DisplayName(), booking.Guest.Email, guestSubject, guestBody)
		go notifications.SendEmail(booking.Host.DisplayName(), booking.Host.Email, hostSubject, hostBody)
	}
}
