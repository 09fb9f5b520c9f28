package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
	"stayhub/internal/provider"
	"stayhub/internal/repositories"
	"stayhub/internal/utils"
)

// legalEscrowEdges is the single source of truth for the escrow state
// machine. Anything not listed is rejected with no state change.
var legalEscrowEdges = map[string][]string{
	models.EscrowInitiated: {models.EscrowPending, models.EscrowHeld, models.EscrowFailed, models.EscrowCancelled},
	models.EscrowPending:   {models.EscrowHeld, models.EscrowFailed, models.EscrowCancelled},
	models.EscrowHeld:      {models.EscrowReleased, models.EscrowRefunded},
}

// CanTransition reports whether from→to is a legal escrow edge.
func CanTransition(from, to string) bool {
	for _, next := range legalEscrowEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EscrowService runs the peer-to-peer escrow state machine: payer funds a
// hold through the provider, funds sit HELD until released to the recipient
// or refunded to the payer. It shares the provider adapter and the ledger
// with the settlement path.
type EscrowService struct {
	DB       *sql.DB
	Escrows  repositories.EscrowRepository
	Ledger   LedgerService
	Provider provider.Adapter

	PendingTimeout time.Duration
	RequestID      string
}

func (s EscrowService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// CreateDeposit opens an escrow hold and initiates the provider collection.
// INITIATED→PENDING once the provider accepts; a provider rejection closes
// the row as FAILED.
func (s EscrowService) CreateDeposit(ctx context.Context, payerID, recipientID, amount int64, terms, payer string) (models.EscrowTransaction, error) {
	if payerID <= 0 || recipientID <= 0 {
		return models.EscrowTransaction{}, domain.ValidationError{Field: "parties", Msg: "payer and recipient are required"}
	}
	if payerID == recipientID {
		return models.EscrowTransaction{}, domain.ValidationError{Field: "recipient", Msg: "payer and recipient must differ"}
	}
	if amount <= 0 {
		return models.EscrowTransaction{}, domain.ValidationError{Field: "amount", Msg: "amount must be positive"}
	}
	switch terms {
	case models.ReleaseManual, models.ReleaseAutomatic, models.ReleaseConditional:
	case "":
		terms = models.ReleaseManual
	default:
		return models.EscrowTransaction{}, domain.ValidationError{Field: "release_terms", Msg: "unknown release terms"}
	}

	e := models.EscrowTransaction{
		Reference:    utils.NewID(),
		PayerID:      payerID,
		RecipientID:  recipientID,
		Amount:       amount,
		Currency:     s.Ledger.currency(),
		ReleaseTerms: terms,
	}
	id, err := s.Escrows.Create(e)
	if err != nil {
		return models.EscrowTransaction{}, err
	}
	e.ID = id
	e.Status = models.EscrowInitiated

	resp, err := s.Provider.Collect(ctx, provider.CollectionRequest{
		Reference: e.Reference,
		Amount:    amount,
		Payer:     payer,
		Narration: fmt.Sprintf("escrow %s", e.Reference),
	})
	if err != nil {
		if _, terr := s.Escrows.Transition(id, models.EscrowInitiated, models.EscrowFailed); terr != nil {
			utils.LogEvent(s.RequestID, "escrow", "fail_mark_error",
				fmt.Sprintf("escrow_id=%d err=%v", id, terr))
		}
		return models.EscrowTransaction{}, err
	}

	if err := s.Escrows.SetProviderRef(id, resp.RefID); err != nil {
		return models.EscrowTransaction{}, err
	}
	e.ProviderRef = resp.RefID

	if _, err := s.Escrows.Transition(id, models.EscrowInitiated, models.EscrowPending); err != nil {
		return models.EscrowTransaction{}, err
	}
	e.Status = models.EscrowPending

	utils.LogEvent(s.RequestID, "escrow", "deposit_created",
		fmt.Sprintf("escrow_id=%d refid=%s amount=%s", id, resp.RefID, utils.FormatMinor(amount)))
	return e, nil
}

// ApplyProviderEvent moves an escrow on webhook confirmation: funding
// success takes INITIATED/PENDING to HELD, failure closes the row.
func (s EscrowService) ApplyProviderEvent(ev provider.Event) error {
	e, err := s.Escrows.GetByProviderRef(ev.RefID)
	if err != nil {
		return err
	}

	switch ev.Status {
	case provider.StatusSuccess:
		if e.Status == models.EscrowHeld {
			return nil // duplicate confirmation
		}
		if !CanTransition(e.Status, models.EscrowHeld) {
			utils.LogEvent(s.RequestID, "escrow", "confirm_ignored",
				fmt.Sprintf("escrow_id=%d status=%s", e.ID, e.Status))
			return nil
		}
		if _, err := s.Escrows.Transition(e.ID, e.Status, models.EscrowHeld); err != nil {
			return err
		}
		utils.LogEvent(s.RequestID, "escrow", "held",
			fmt.Sprintf("escrow_id=%d refid=%s", e.ID, ev.RefID))
		return nil
	case provider.StatusFailed:
		if !CanTransition(e.Status, models.EscrowFailed) {
			return nil // already terminal
		}
		if _, err := s.Escrows.Transition(e.ID, e.Status, models.EscrowFailed); err != nil {
			return err
		}
		utils.LogEvent(s.RequestID, "escrow", "failed",
			fmt.Sprintf("escrow_id=%d refid=%s", e.ID, ev.RefID))
		return nil
	default:
		return nil
	}
}

// Release moves HELD→RELEASED and credits the recipient's available
// balance. The requester must be payer, recipient, or an arbiter when a
// dispute exists; an open dispute blocks everyone but the arbiter.
func (s EscrowService) Release(id, requesterID int64, isArbiter bool) error {
	e, err := s.Escrows.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.authorizeSettle(e, requesterID, isArbiter); err != nil {
		return err
	}
	return s.settle(e, models.EscrowReleased, e.RecipientID, e.Amount, isArbiter, "escrow release")
}

// Refund moves HELD→REFUNDED and returns the funds to the payer. A reason
// is required for the audit trail.
func (s EscrowService) Refund(id, requesterID int64, isArbiter bool, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return domain.ValidationError{Field: "reason", Msg: "refund reason is required"}
	}
	e, err := s.Escrows.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.authorizeSettle(e, requesterID, isArbiter); err != nil {
		return err
	}
	return s.settle(e, models.EscrowRefunded, e.PayerID, e.Amount, isArbiter, "escrow refund: "+reason)
}

// Dispute freezes a HELD escrow until an arbiter resolves it.
func (s EscrowService) Dispute(id, requesterID int64, reason string) (models.EscrowDispute, error) {
	if strings.TrimSpace(reason) == "" {
		return models.EscrowDispute{}, domain.ValidationError{Field: "reason", Msg: "dispute reason is required"}
	}
	e, err := s.Escrows.GetByID(id)
	if err != nil {
		return models.EscrowDispute{}, err
	}
	if requesterID != e.PayerID && requesterID != e.RecipientID {
		return models.EscrowDispute{}, domain.NotAuthorizedError{Msg: "only escrow parties can raise a dispute"}
	}
	if e.Status != models.EscrowHeld {
		return models.EscrowDispute{}, domain.ConflictError{Resource: "escrow", Msg: "only held funds can be disputed"}
	}
	if _, open, err := s.Escrows.OpenDispute(e.ID); err != nil {
		return models.EscrowDispute{}, err
	} else if open {
		return models.EscrowDispute{}, domain.ConflictError{Resource: "escrow", Msg: "dispute already open"}
	}

	d := models.EscrowDispute{EscrowID: e.ID, RaisedBy: requesterID, Reason: reason}
	did, err := s.Escrows.CreateDispute(d)
	if err != nil {
		return models.EscrowDispute{}, err
	}
	d.ID = did
	d.Status = models.DisputeOpen

	utils.LogEvent(s.RequestID, "escrow", "disputed",
		fmt.Sprintf("escrow_id=%d raised_by=%d", e.ID, requesterID))
	return d, nil
}

// DisputeDecision is the arbiter's verdict: full release, full refund, or a
// percentage split (SplitPct goes to the recipient).
type DisputeDecision struct {
	Resolution string
	SplitPct   int64
}

// ResolveDispute applies the arbiter decision and closes the dispute and
// the escrow in one transaction.
func (s EscrowService) ResolveDispute(id, arbiterID int64, decision DisputeDecision) error {
	e, err := s.Escrows.GetByID(id)
	if err != nil {
		return err
	}
	if e.Status != models.EscrowHeld {
		return domain.ConflictError{Resource: "escrow", Msg: "escrow is not held"}
	}
	d, open, err := s.Escrows.OpenDispute(e.ID)
	if err != nil {
		return err
	}
	if !open {
		return domain.ConflictError{Resource: "escrow", Msg: "no open dispute"}
	}

	switch decision.Resolution {
	case models.ResolutionRelease:
		return s.settleDispute(e, d, arbiterID, decision, models.EscrowReleased, e.Amount, 0)
	case models.ResolutionRefund:
		return s.settleDispute(e, d, arbiterID, decision, models.EscrowRefunded, 0, e.Amount)
	case models.ResolutionSplit:
		if decision.SplitPct <= 0 || decision.SplitPct >= 100 {
			return domain.ValidationError{Field: "split_pct", Msg: "split percentage must be between 1 and 99"}
		}
		// half-up on the recipient share, residual to the payer refund, so
		// both legs reassemble the held amount exactly
		toRecipient := (e.Amount*decision.SplitPct + 50) / 100
		toPayer := e.Amount - toRecipient
		return s.settleDispute(e, d, arbiterID, decision, models.EscrowReleased, toRecipient, toPayer)
	default:
		return domain.ValidationError{Field: "resolution", Msg: "resolution must be release, refund or split"}
	}
}

func (s EscrowService) settleDispute(e models.EscrowTransaction, d models.EscrowDispute, arbiterID int64,
	decision DisputeDecision, terminal string, toRecipient, toPayer int64) error {

	tx, err := s.db().Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	moved, err := s.Escrows.TransitionTx(tx, e.ID, models.EscrowHeld, terminal)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ConflictError{Resource: "escrow", Msg: "concurrent transition"}
	}

	resolved, err := s.Escrows.ResolveDisputeTx(tx, d.ID, arbiterID, decision.Resolution, decision.SplitPct)
	if err != nil {
		return err
	}
	if !resolved {
		return domain.ConflictError{Resource: "escrow", Msg: "dispute already resolved"}
	}

	if toRecipient > 0 {
		if err := s.Ledger.CreditTx(tx, e.RecipientID, toRecipient, false,
			"escrow dispute resolution", e.Reference, 0); err != nil {
			return err
		}
	}
	if toPayer > 0 {
		if err := s.Ledger.CreditTx(tx, e.PayerID, toPayer, false,
			"escrow dispute refund", e.Reference, 0); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "escrow", "dispute_resolved",
		fmt.Sprintf("escrow_id=%d resolution=%s recipient=%d payer=%d", e.ID, decision.Resolution, toRecipient, toPayer))
	return nil
}

// settle closes a HELD escrow on one terminal edge and credits one party.
func (s EscrowService) settle(e models.EscrowTransaction, terminal string, creditUserID, amount int64, isArbiter bool, reason string) error {
	if !CanTransition(e.Status, terminal) {
		return domain.ConflictError{
			Resource: "escrow",
			Msg:      fmt.Sprintf("illegal transition %s -> %s", e.Status, terminal),
		}
	}

	tx, err := s.db().Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// a dispute raised after the authorization read must still block the
	// parties, so the check repeats under the row lock
	if !isArbiter {
		if _, disputed, err := s.Escrows.OpenDisputeTx(tx, e.ID); err != nil {
			return err
		} else if disputed {
			return domain.ConflictError{Resource: "escrow", Msg: "blocked by open dispute"}
		}
	}

	moved, err := s.Escrows.TransitionTx(tx, e.ID, e.Status, terminal)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ConflictError{Resource: "escrow", Msg: "concurrent transition"}
	}

	if err := s.Ledger.CreditTx(tx, creditUserID, amount, false, reason, e.Reference, 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "escrow", strings.ToLower(terminal),
		fmt.Sprintf("escrow_id=%d user_id=%d amount=%s", e.ID, creditUserID, utils.FormatMinor(amount)))
	return nil
}

func (s EscrowService) authorizeSettle(e models.EscrowTransaction, requesterID int64, isArbiter bool) error {
	_, disputed, err := s.Escrows.OpenDispute(e.ID)
	if err != nil {
		return err
	}
	if disputed && !isArbiter {
		return domain.ConflictError{Resource: "escrow", Msg: "blocked by open dispute"}
	}
	if !isArbiter && requesterID != e.PayerID && requesterID != e.RecipientID {
		return domain.NotAuthorizedError{Msg: "requester is not a party to this escrow"}
	}
	return nil
}

// SweepPending resolves PENDING escrows that saw no terminal webhook within
// the configured window: poll the provider, apply a late confirmation or
// failure, otherwise cancel the abandoned flow.
func (s EscrowService) SweepPending(ctx context.Context, now time.Time) error {
	timeout := s.PendingTimeout
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	stale, err := s.Escrows.ListStalePending(now.Add(-timeout), 50)
	if err != nil {
		return err
	}

	for _, e := range stale {
		status, err := s.Provider.Status(ctx, e.ProviderRef)
		if err != nil {
			// provider unreachable; leave the row for the next sweep
			utils.LogEvent(s.RequestID, "escrow", "sweep_poll_failed",
				fmt.Sprintf("escrow_id=%d err=%v", e.ID, err))
			continue
		}
		switch status.Status {
		case provider.StatusSuccess:
			if _, err := s.Escrows.Transition(e.ID, models.EscrowPending, models.EscrowHeld); err != nil {
				return err
			}
			utils.LogEvent(s.RequestID, "escrow", "sweep_held", fmt.Sprintf("escrow_id=%d", e.ID))
		case provider.StatusFailed:
			if _, err := s.Escrows.Transition(e.ID, models.EscrowPending, models.EscrowFailed); err != nil {
				return err
			}
			utils.LogEvent(s.RequestID, "escrow", "sweep_failed", fmt.Sprintf("escrow_id=%d", e.ID))
		default:
			// payer abandoned the flow
			if _, err := s.Escrows.Transition(e.ID, models.EscrowPending, models.EscrowCancelled); err != nil {
				return err
			}
			utils.LogEvent(s.RequestID, "escrow", "sweep_cancelled", fmt.Sprintf("escrow_id=%d", e.ID))
		}
	}
	return nil
}
