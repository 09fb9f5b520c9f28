package models

import "time"

// Payee payout statuses. Pending rows are created at payment-success time;
// only the check-in gate moves them forward.
const (
	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutEarned   = "earned"
	PayoutPaid     = "paid"
)

// HostPayment is the host's share of one settled booking.
type HostPayment struct {
	ID               int64     `json:"id"`
	BookingID        int64     `json:"booking_id"`
	HostID           int64     `json:"host_id"`
	GrossAmount      int64     `json:"gross_amount"`
	NetAmount        int64     `json:"net_amount"`
	Status           string    `json:"status"`
	CheckInValidated bool      `json:"check_in_validated"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AgentCommission is the optional intermediary's cut of one settled booking.
type AgentCommission struct {
	ID               int64     `json:"id"`
	BookingID        int64     `json:"booking_id"`
	AgentID          int64     `json:"agent_id"`
	GrossAmount      int64     `json:"gross_amount"`
	CommissionAmount int64     `json:"commission_amount"`
	Status           string    `json:"status"`
	CheckInValidated bool      `json:"check_in_validated"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
