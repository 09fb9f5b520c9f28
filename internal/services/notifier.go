package services

import (
	"fmt"

	"stayhub/internal/utils"
)

// Notifier is the external email/SMS collaborator. Delivery is out of
// scope; the engine only emits events keyed by booking and recipient role.
type Notifier interface {
	PaymentSucceeded(bookingID int64, role string, userID int64, amount int64)
	PaymentFailed(bookingID int64, refID string)
}

// LogNotifier writes notification events to the log. It stands in wherever
// a real notifier is not wired.
type LogNotifier struct {
	RequestID string
}

func (n LogNotifier) PaymentSucceeded(bookingID int64, role string, userID int64, amount int64) {
	utils.LogEvent(n.RequestID, "notify", "payment_success",
		fmt.Sprintf("booking_id=%d role=%s user_id=%d amount=%s", bookingID, role, userID, utils.FormatMinor(amount)))
}

func (n LogNotifier) PaymentFailed(bookingID int64, refID string) {
	utils.LogEvent(n.RequestID, "notify", "payment_failed",
		fmt.Sprintf("booking_id=%d refid=%s", bookingID, refID))
}
