package models

import "time"

// Payment status values for a booking.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Booking lifecycle status values.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCheckedIn = "checkedin"
	BookingCheckout  = "checkout"
	BookingCancelled = "cancelled"
)

// Booking captures the settlement-relevant view of a reservation
// (property stay or guided tour). Amounts are settlement-currency minor
// units, never floats.
type Booking struct {
	ID          int64  `json:"id"`
	ListingType string `json:"listing_type"` // property | tour
	GuestID     int64  `json:"guest_id"`
	HostID      int64  `json:"host_id"`
	AgentID     int64  `json:"agent_id"` // 0 when no agent participates
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`

	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"` // provider correlation id

	CheckInCode        string     `json:"-"`
	CheckInValidated   bool       `json:"check_in_validated"`
	CheckInValidatedAt *time.Time `json:"check_in_validated_at,omitempty"`
	CheckInValidatedBy int64      `json:"check_in_validated_by,omitempty"`

	CheckOutValidated   bool       `json:"check_out_validated"`
	CheckOutValidatedAt *time.Time `json:"check_out_validated_at,omitempty"`

	// WalletDistributed is the idempotency fence for ledger crediting,
	// distinct from PaymentStatus because status update and crediting are
	// separate failure domains.
	WalletDistributed   bool       `json:"wallet_distributed"`
	WalletDistributedAt *time.Time `json:"wallet_distributed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAgent reports whether an intermediary agent takes a commission cut.
func (b Booking) HasAgent() bool {
	return b.AgentID > 0
}
