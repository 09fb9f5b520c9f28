package services

import (
	"context"
	"fmt"
	"time"

	"stayhub/internal/provider"
	"stayhub/internal/repositories"
	"stayhub/internal/utils"
)

// ReconcileService is the fallback path when webhook delivery is uncertain:
// it actively polls provider status and feeds detected terminal states
// through the same orchestrator code path a webhook would take. It never
// mutates the ledger itself.
type ReconcileService struct {
	Bookings   repositories.BookingRepository
	Provider   provider.Adapter
	Settlement SettlementService
	Interval   time.Duration
	RequestID  string
}

// CheckStatus polls the provider for one correlation id and applies any
// detected terminal status through the orchestrator.
func (s ReconcileService) CheckStatus(ctx context.Context, refID string) (provider.Status, error) {
	resp, err := s.Provider.Status(ctx, refID)
	if err != nil {
		return "", err
	}

	if resp.Status.Terminal() {
		ev := provider.Event{
			RefID:      refID,
			Status:     resp.Status,
			RawStatus:  resp.RawStatus,
			Amount:     resp.Amount,
			ReceivedAt: time.Now().UTC(),
		}
		if err := s.Settlement.ProcessEvent(ev); err != nil {
			// duplicates and unmatched refs are expected here; the poll
			// still reports the provider's answer
			utils.LogEvent(s.RequestID, "reconcile", "process_event",
				fmt.Sprintf("refid=%s err=%v", refID, err))
		}
	}
	return resp.Status, nil
}

// Sweep polls every booking that initiated a collection but saw no terminal
// webhook within the interval.
func (s ReconcileService) Sweep(ctx context.Context, now time.Time) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	stale, err := s.Bookings.ListStalePending(now.Add(-interval), 50)
	if err != nil {
		return err
	}

	for _, b := range stale {
		if _, err := s.CheckStatus(ctx, b.TransactionID); err != nil {
			utils.LogEvent(s.RequestID, "reconcile", "sweep_poll_failed",
				fmt.Sprintf("booking_id=%d refid=%s err=%v", b.ID, b.TransactionID, err))
		}
	}
	if len(stale) > 0 {
		utils.LogEvent(s.RequestID, "reconcile", "sweep",
			fmt.Sprintf("polled=%d", len(stale)))
	}
	return nil
}
