package models

import "time"

// Escrow transaction statuses. RELEASED, REFUNDED, FAILED and CANCELLED
// are terminal; a dispute freezes transitions out of HELD until resolved.
const (
	EscrowInitiated = "INITIATED"
	EscrowPending   = "PENDING"
	EscrowHeld      = "HELD"
	EscrowReleased  = "RELEASED"
	EscrowRefunded  = "REFUNDED"
	EscrowFailed    = "FAILED"
	EscrowCancelled = "CANCELLED"
)

// Release terms for an escrow hold.
const (
	ReleaseManual      = "manual"
	ReleaseAutomatic   = "automatic"
	ReleaseConditional = "conditional"
)

// EscrowTransaction is one peer-to-peer hold: payer funds it through the
// provider, the amount sits in HELD until released to the recipient or
// refunded to the payer.
type EscrowTransaction struct {
	ID           int64  `json:"id"`
	Reference    string `json:"reference"` // internal ULID
	PayerID      int64  `json:"payer_id"`
	RecipientID  int64  `json:"recipient_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ProviderRef  string `json:"provider_ref"` // collection correlation id
	ReleaseTerms string `json:"release_terms"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	HeldAt    *time.Time `json:"held_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Dispute statuses and resolutions.
const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"

	ResolutionRelease = "release"
	ResolutionRefund  = "refund"
	ResolutionSplit   = "split"
)

// EscrowDispute blocks release/refund of its escrow until an arbiter
// decides: full release, full refund, or a percentage split.
type EscrowDispute struct {
	ID         int64      `json:"id"`
	EscrowID   int64      `json:"escrow_id"`
	RaisedBy   int64      `json:"raised_by"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	SplitPct   int64      `json:"split_pct,omitempty"` // percentage to recipient when split
	ResolvedBy int64      `json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
