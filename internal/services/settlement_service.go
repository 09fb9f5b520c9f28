package services

import (
	"context"
	"database/sql"
	"fmt"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
	"stayhub/internal/provider"
	"stayhub/internal/repositories"
	"stayhub/internal/utils"
)

// Operation tag used for settlement idempotency keys.
const opSettlement = "settlement"

// SettlementService turns a canonical payment event into booking state and
// ledger movements. All money steps of one event run inside one DB
// transaction; duplicates are stopped by the idempotency key claim and the
// wallet_distributed fence.
type SettlementService struct {
	DB          *sql.DB
	Bookings    repositories.BookingRepository
	Payouts     repositories.PayoutRepository
	Idempotency repositories.IdempotencyRepository
	Ledger      LedgerService
	Escrow      *EscrowService

	Rule           intconfig.SplitRule
	PlatformUserID int64
	Notifier       Notifier
	RequestID      string
}

func (s SettlementService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s SettlementService) notifier() Notifier {
	if s.Notifier != nil {
		return s.Notifier
	}
	return LogNotifier{RequestID: s.RequestID}
}

// ProcessEvent applies one canonical provider event. Events that match no
// booking are routed to the escrow manager; events matching neither are a
// logged no-op (the provider may notify about flows we no longer track).
func (s SettlementService) ProcessEvent(ev provider.Event) error {
	booking, err := s.Bookings.GetByTransactionID(ev.RefID)
	if domain.IsNotFound(err) {
		if s.Escrow != nil {
			if escErr := s.Escrow.ApplyProviderEvent(ev); !domain.IsNotFound(escErr) {
				return escErr
			}
		}
		utils.LogEvent(s.RequestID, "settlement", "unmatched_event",
			fmt.Sprintf("refid=%s status=%s", ev.RefID, ev.Status))
		return nil
	}
	if err != nil {
		return err
	}

	switch ev.Status {
	case provider.StatusFailed:
		return s.handleFailure(booking, ev)
	case provider.StatusSuccess:
		return s.handleSuccess(booking, ev)
	default:
		// still pending at the provider, nothing to change yet
		return nil
	}
}

func (s SettlementService) handleFailure(booking models.Booking, ev provider.Event) error {
	changed, err := s.Bookings.MarkPaymentFailed(booking.ID)
	if err != nil {
		return err
	}
	if !changed {
		// already completed or already failed; never downgrade
		utils.LogEvent(s.RequestID, "settlement", "failure_ignored",
			fmt.Sprintf("booking_id=%d payment_status=%s", booking.ID, booking.PaymentStatus))
		return nil
	}
	utils.LogEvent(s.RequestID, "settlement", "payment_failed",
		fmt.Sprintf("booking_id=%d refid=%s", booking.ID, ev.RefID))
	s.notifier().PaymentFailed(booking.ID, ev.RefID)
	return nil
}

func (s SettlementService) handleSuccess(booking models.Booking, ev provider.Event) error {
	if booking.PaymentStatus == models.PaymentCompleted && booking.WalletDistributed {
		utils.LogEvent(s.RequestID, "settlement", "duplicate_event",
			fmt.Sprintf("booking_id=%d refid=%s", booking.ID, ev.RefID))
		return domain.DuplicateEventError{CorrelationID: ev.RefID, Operation: opSettlement}
	}

	if ev.Amount > 0 && ev.Amount != booking.Amount {
		// booking row is authoritative; a mismatch is worth investigating
		utils.LogEvent(s.RequestID, "settlement", "amount_mismatch",
			fmt.Sprintf("booking_id=%d booking_amount=%d event_amount=%d", booking.ID, booking.Amount, ev.Amount))
	}

	tx, err := s.db().Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Storage-enforced fence: a concurrent delivery for the same refid hits
	// the unique key and aborts here before any money moves.
	if err := s.Idempotency.ClaimTx(tx, ev.RefID, opSettlement); err != nil {
		return err
	}

	locked, err := s.Bookings.GetForUpdateTx(tx, booking.ID)
	if err != nil {
		return err
	}
	if locked.PaymentStatus == models.PaymentCompleted || locked.WalletDistributed {
		return domain.DuplicateEventError{CorrelationID: ev.RefID, Operation: opSettlement}
	}

	completed, err := s.Bookings.MarkPaymentCompletedTx(tx, locked.ID)
	if err != nil {
		return err
	}
	if !completed {
		// the CAS only moves pending payments; a booking already marked
		// failed (late webhook behind a FAILED event) must not be credited
		return domain.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("payment is %s, not pending", locked.PaymentStatus),
		}
	}

	split := SplitAmount(locked.Amount, locked.HasAgent(), s.Rule)
	if split.Total() != locked.Amount {
		return domain.LedgerConsistencyError{
			Msg: fmt.Sprintf("split %d+%d+%d does not reassemble %d",
				split.Platform, split.Agent, split.Host, locked.Amount),
		}
	}

	if err := s.Payouts.CreateHostPaymentTx(tx, models.HostPayment{
		BookingID:   locked.ID,
		HostID:      locked.HostID,
		GrossAmount: locked.Amount,
		NetAmount:   split.Host,
	}); err != nil {
		return err
	}
	if locked.HasAgent() {
		if err := s.Payouts.CreateAgentCommissionTx(tx, models.AgentCommission{
			BookingID:        locked.ID,
			AgentID:          locked.AgentID,
			GrossAmount:      locked.Amount,
			CommissionAmount: split.Agent,
		}); err != nil {
			return err
		}
	}

	// Platform share is withdrawable immediately; host and agent shares sit
	// in pending until the check-in gate releases them.
	if err := s.Ledger.CreditTx(tx, s.PlatformUserID, split.Platform, false,
		"platform fee", ev.RefID, locked.ID); err != nil {
		return err
	}
	if err := s.Ledger.CreditTx(tx, locked.HostID, split.Host, true,
		"host share", ev.RefID, locked.ID); err != nil {
		return err
	}
	if locked.HasAgent() {
		if err := s.Ledger.CreditTx(tx, locked.AgentID, split.Agent, true,
			"agent commission", ev.RefID, locked.ID); err != nil {
			return err
		}
	}

	distributed, err := s.Bookings.MarkWalletDistributedTx(tx, locked.ID, utils.NowUTC())
	if err != nil {
		return err
	}
	if !distributed {
		return domain.DuplicateEventError{CorrelationID: ev.RefID, Operation: opSettlement}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	utils.LogEvent(s.RequestID, "settlement", "settled",
		fmt.Sprintf("booking_id=%d refid=%s platform=%d host=%d agent=%d",
			locked.ID, ev.RefID, split.Platform, split.Host, split.Agent))

	n := s.notifier()
	n.PaymentSucceeded(locked.ID, models.RoleHost, locked.HostID, split.Host)
	if locked.HasAgent() {
		n.PaymentSucceeded(locked.ID, models.RoleAgent, locked.AgentID, split.Agent)
	}
	return nil
}

// InitiateCollection starts a deposit for a pending booking and stores the
// provider correlation id. The redirect/webhook path completes it later.
func (s SettlementService) InitiateCollection(ctx context.Context, bookingID int64, payer string, adapter provider.Adapter) (string, error) {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return "", err
	}
	if booking.PaymentStatus == models.PaymentCompleted {
		return "", domain.ConflictError{Resource: "booking", Msg: "payment already completed"}
	}

	reference := utils.NewID()
	resp, err := adapter.Collect(ctx, provider.CollectionRequest{
		Reference: reference,
		Amount:    booking.Amount,
		Payer:     payer,
		Narration: fmt.Sprintf("booking %d", booking.ID),
	})
	if err != nil {
		return "", err
	}

	if err := s.Bookings.SetTransactionID(booking.ID, resp.RefID); err != nil {
		return "", err
	}
	utils.LogEvent(s.RequestID, "settlement", "collection_initiated",
		fmt.Sprintf("booking_id=%d refid=%s", booking.ID, resp.RefID))
	return resp.RefID, nil
}
