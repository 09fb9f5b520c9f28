package services

import (
	"database/sql"
	"fmt"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
	"stayhub/internal/repositories"
	"stayhub/internal/utils"
)

// CheckinService gates the release of host and agent shares on the guest's
// physical arrival. The platform share was credited available at settlement
// time and is never touched here.
type CheckinService struct {
	DB        *sql.DB
	Bookings  repositories.BookingRepository
	Payouts   repositories.PayoutRepository
	Ledger    LedgerService
	RequestID string
}

func (s CheckinService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// ValidateCheckIn confirms the guest arrived. Caller must own the listing;
// when a check-in code was set at booking time the supplied code must match.
// Atomically: booking marked checked-in, host payment pending→approved with
// its share released, agent commission pending→earned with its share
// released.
func (s CheckinService) ValidateCheckIn(bookingID, callerID int64, code string) error {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking.HostID != callerID {
		return domain.NotAuthorizedError{Msg: "only the listing owner can validate check-in"}
	}
	if booking.CheckInCode != "" && booking.CheckInCode != code {
		return domain.ValidationError{Field: "code", Msg: "invalid code"}
	}
	if booking.PaymentStatus != models.PaymentCompleted {
		return domain.ConflictError{Resource: "booking", Msg: "payment not completed"}
	}
	if booking.CheckInValidated {
		return domain.DuplicateEventError{CorrelationID: booking.TransactionID, Operation: "checkin"}
	}

	tx, err := s.db().Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	marked, err := s.Bookings.MarkCheckInTx(tx, booking.ID, callerID, utils.NowUTC())
	if err != nil {
		return err
	}
	if !marked {
		return domain.DuplicateEventError{CorrelationID: booking.TransactionID, Operation: "checkin"}
	}

	hp, err := s.Payouts.GetHostPaymentForUpdateTx(tx, booking.ID)
	if err != nil {
		return err
	}
	moved, err := s.Payouts.MarkHostPaymentTx(tx, hp.ID, models.PayoutPending, models.PayoutApproved)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ConflictError{Resource: "host payment", Msg: "not in pending state"}
	}
	if err := s.Ledger.ReleaseTx(tx, hp.HostID, hp.NetAmount,
		"check-in release", booking.TransactionID, booking.ID); err != nil {
		return err
	}

	if ac, ok, err := s.Payouts.GetAgentCommissionForUpdateTx(tx, booking.ID); err != nil {
		return err
	} else if ok {
		moved, err := s.Payouts.MarkAgentCommissionTx(tx, ac.ID, models.PayoutPending, models.PayoutEarned)
		if err != nil {
			return err
		}
		if !moved {
			return domain.ConflictError{Resource: "agent commission", Msg: "not in pending state"}
		}
		if err := s.Ledger.ReleaseTx(tx, ac.AgentID, ac.CommissionAmount,
			"check-in release", booking.TransactionID, booking.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	utils.LogEvent(s.RequestID, "checkin", "validated",
		fmt.Sprintf("booking_id=%d validator=%d", booking.ID, callerID))
	return nil
}

// ValidateCheckOut marks the stay complete. Terminal for the booking
// lifecycle; no additional funds move.
func (s CheckinService) ValidateCheckOut(bookingID, callerID int64) error {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking.HostID != callerID {
		return domain.NotAuthorizedError{Msg: "only the listing owner can validate check-out"}
	}
	if !booking.CheckInValidated {
		return domain.ConflictError{Resource: "booking", Msg: "check-in not validated yet"}
	}

	tx, err := s.db().Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	marked, err := s.Bookings.MarkCheckOutTx(tx, booking.ID, utils.NowUTC())
	if err != nil {
		return err
	}
	if !marked {
		return domain.DuplicateEventError{CorrelationID: booking.TransactionID, Operation: "checkout"}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	utils.LogEvent(s.RequestID, "checkin", "checkout",
		fmt.Sprintf("booking_id=%d validator=%d", booking.ID, callerID))
	return nil
}
