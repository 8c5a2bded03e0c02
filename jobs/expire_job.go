package jobs

import (
	"log"
	"time"

	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/models"
)

const paymentGracePeriod = 2 * time.Hour

// ExpireUnpaidBookings cancels bookings that never completed payment so the
// dates become bookable again.
func ExpireUnpaidBookings() {
	log.Println("Running job: ExpireUnpaidBookings...")

	cutoff := time.Now().Add(-paymentGracePeriod)

	res := database.DB.Model(&models.Booking{}).
		Where("status = ? AND created_at < ?", "pending_payment", cutoff).
		Update("status", "cancelled")

	if res.Error != nil {
		log.Printf("Error expiring unpaid bookings: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("Cancelled %d unpaid bookings past the payment window.", res.RowsAffected)
	}
}
