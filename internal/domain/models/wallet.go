package models

import "time"

// Wallet is one user's ledger position. Balance is withdrawable; pending
// balance is earned but held until check-in releases it. Both must stay
// non-negative at all times.
type Wallet struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Balance        int64     `json:"balance"`
	PendingBalance int64     `json:"pending_balance"`
	Currency       string    `json:"currency"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Wallet transaction directions. Release rows are net-zero across the two
// buckets (pending down, available up); credits and debits carry the signed
// sum from which balance + pending_balance can be reconstructed.
const (
	TxCredit  = "credit"
	TxDebit   = "debit"
	TxRelease = "release"
)

// WalletTransaction is one immutable ledger entry. Rows are appended once
// per mutation and never updated or deleted; they are the audit trail.
type WalletTransaction struct {
	ID        int64  `json:"id"`
	WalletID  int64  `json:"wallet_id"`
	UserID    int64  `json:"user_id"`
	Direction string `json:"direction"`
	Amount    int64  `json:"amount"`

	BalanceBefore int64 `json:"balance_before"`
	BalanceAfter  int64 `json:"balance_after"`
	PendingBefore int64 `json:"pending_before"`
	PendingAfter  int64 `json:"pending_after"`

	Reference string `json:"reference"` // provider correlation id or internal ULID
	Reason    string `json:"reason"`
	BookingID int64  `json:"booking_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
