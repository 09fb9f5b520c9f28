package provider

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"stayhub/internal/domain"
)

// Status is the canonical payment status the rest of the system sees.
// Provider-specific vocabularies are folded onto it at this boundary and
// never leak past the adapter.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPending Status = "PENDING"
)

// Terminal reports whether no further provider updates are expected.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// MapStatus folds the provider status vocabulary onto the canonical enum.
// Unknown tokens map to PENDING so an unexpected value can never move money.
func MapStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "successful", "completed", "paid", "ok", "approved":
		return StatusSuccess
	case "failed", "failure", "declined", "cancelled", "canceled", "error", "rejected":
		return StatusFailed
	case "pending", "processing", "initiated", "in_progress":
		return StatusPending
	default:
		return StatusPending
	}
}

// Event is the canonical inbound payment notification.
type Event struct {
	RefID         string
	Status        Status
	RawStatus     string
	Amount        int64 // minor units; 0 when the notification omits it
	TransactionID string
	ReceivedAt    time.Time
}

type webhookBody struct {
	RefID         string      `json:"refid"`
	Reference     string      `json:"reference"`
	Status        string      `json:"status"`
	Amount        json.Number `json:"amount"`
	TransactionID string      `json:"transactionId"`
}

// ParseWebhook extracts a canonical event from a raw webhook body.
// The provider transmits whole-unit amounts (see WholeUnits).
func ParseWebhook(raw []byte) (Event, error) {
	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Event{}, domain.ValidationError{Field: "body", Msg: "malformed webhook payload", Err: err}
	}

	ref := strings.TrimSpace(body.RefID)
	if ref == "" {
		ref = strings.TrimSpace(body.Reference)
	}
	if ref == "" {
		return Event{}, domain.ValidationError{Field: "refid", Msg: "missing correlation id"}
	}

	ev := Event{
		RefID:         ref,
		RawStatus:     strings.TrimSpace(body.Status),
		Status:        MapStatus(body.Status),
		TransactionID: strings.TrimSpace(body.TransactionID),
		ReceivedAt:    time.Now().UTC(),
	}
	if body.Amount != "" {
		if whole, err := body.Amount.Int64(); err == nil {
			ev.Amount = whole * 100
		}
	}
	return ev, nil
}

// ParseRedirect extracts the same canonical event from browser-redirect
// query parameters. The claimed status steers the redirect target only;
// it is never the source of truth for money.
func ParseRedirect(q url.Values) (Event, error) {
	ref := strings.TrimSpace(q.Get("refid"))
	if ref == "" {
		ref = strings.TrimSpace(q.Get("reference"))
	}
	if ref == "" {
		return Event{}, domain.ValidationError{Field: "refid", Msg: "missing correlation id"}
	}
	raw := strings.TrimSpace(q.Get("status"))
	return Event{
		RefID:      ref,
		RawStatus:  raw,
		Status:     MapStatus(raw),
		ReceivedAt: time.Now().UTC(),
	}, nil
}
