package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
)

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const bookingColumns = `id,
	COALESCE(listing_type,''),
	COALESCE(guest_id,0),
	COALESCE(host_id,0),
	COALESCE(agent_id,0),
	COALESCE(amount,0),
	COALESCE(currency,''),
	COALESCE(payment_status,''),
	COALESCE(status,''),
	COALESCE(transaction_id,''),
	COALESCE(check_in_code,''),
	COALESCE(check_in_validated,0),
	check_in_validated_at,
	COALESCE(check_in_validated_by,0),
	COALESCE(check_out_validated,0),
	check_out_validated_at,
	COALESCE(wallet_distributed,0),
	wallet_distributed_at`

func scanBooking(row *sql.Row) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.ListingType,
		&b.GuestID,
		&b.HostID,
		&b.AgentID,
		&b.Amount,
		&b.Currency,
		&b.PaymentStatus,
		&b.Status,
		&b.TransactionID,
		&b.CheckInCode,
		&b.CheckInValidated,
		&b.CheckInValidatedAt,
		&b.CheckInValidatedBy,
		&b.CheckOutValidated,
		&b.CheckOutValidatedAt,
		&b.WalletDistributed,
		&b.WalletDistributedAt,
	)
	return b, err
}

// GetByID fetches one booking.
func (r BookingRepository) GetByID(id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, err
}

// GetByTransactionID resolves the booking a provider correlation id belongs to.
func (r BookingRepository) GetByTransactionID(refID string) (models.Booking, error) {
	if refID == "" {
		return models.Booking{}, domain.ValidationError{Field: "transaction_id", Msg: "empty correlation id"}
	}
	row := r.db().QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE transaction_id=? LIMIT 1`, refID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, err
}

// GetForUpdateTx re-reads a booking inside a transaction with a row lock.
func (r BookingRepository) GetForUpdateTx(tx *sql.Tx, id int64) (models.Booking, error) {
	row := tx.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1 FOR UPDATE`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, err
}

// MarkPaymentFailed flips a pending payment attempt to failed. A completed
// booking is never downgraded.
func (r BookingRepository) MarkPaymentFailed(id int64) (bool, error) {
	res, err := r.db().Exec(`
		UPDATE bookings
		SET payment_status=?, updated_at=?
		WHERE id=? AND payment_status=?`,
		models.PaymentFailed, time.Now().UTC(), id, models.PaymentPending)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkPaymentCompletedTx is the compare-and-set half of the settlement
// idempotency guard: it only succeeds while the payment is still pending.
func (r BookingRepository) MarkPaymentCompletedTx(tx *sql.Tx, id int64) (bool, error) {
	res, err := tx.Exec(`
		UPDATE bookings
		SET payment_status=?, status=?, updated_at=?
		WHERE id=? AND payment_status=?`,
		models.PaymentCompleted, models.BookingConfirmed, time.Now().UTC(), id, models.PaymentPending)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkWalletDistributedTx sets the crediting fence as the final settlement
// step. The WHERE clause makes the false→true transition happen once.
func (r BookingRepository) MarkWalletDistributedTx(tx *sql.Tx, id int64, at time.Time) (bool, error) {
	res, err := tx.Exec(`
		UPDATE bookings
		SET wallet_distributed=1, wallet_distributed_at=?, updated_at=?
		WHERE id=? AND wallet_distributed=0`,
		at, at, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetTransactionID stores the provider correlation id when a collection is
// initiated for the booking.
func (r BookingRepository) SetTransactionID(id int64, refID string) error {
	_, err := r.db().Exec(`UPDATE bookings SET transaction_id=?, updated_at=? WHERE id=?`,
		refID, time.Now().UTC(), id)
	return err
}

// MarkCheckInTx records a validated check-in once.
func (r BookingRepository) MarkCheckInTx(tx *sql.Tx, id, validatorID int64, at time.Time) (bool, error) {
	res, err := tx.Exec(`
		UPDATE bookings
		SET status=?, check_in_validated=1, check_in_validated_at=?, check_in_validated_by=?, updated_at=?
		WHERE id=? AND check_in_validated=0 AND status=?`,
		models.BookingCheckedIn, at, validatorID, at, id, models.BookingConfirmed)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkCheckOutTx records check-out; terminal for the booking lifecycle.
func (r BookingRepository) MarkCheckOutTx(tx *sql.Tx, id int64, at time.Time) (bool, error) {
	res, err := tx.Exec(`
		UPDATE bookings
		SET status=?, check_out_validated=1, check_out_validated_at=?, updated_at=?
		WHERE id=? AND check_out_validated=0 AND status=?`,
		models.BookingCheckout, at, at, id, models.BookingCheckedIn)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListStalePending returns bookings that initiated a collection but saw no
// terminal webhook within the window; the reconciliation sweep polls these.
func (r BookingRepository) ListStalePending(olderThan time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db().Query(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE payment_status=? AND transaction_id<>'' AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?`,
		models.PaymentPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.ListingType, &b.GuestID, &b.HostID, &b.AgentID,
			&b.Amount, &b.Currency, &b.PaymentStatus, &b.Status, &b.TransactionID,
			&b.CheckInCode, &b.CheckInValidated, &b.CheckInValidatedAt, &b.CheckInValidatedBy,
			&b.CheckOutValidated, &b.CheckOutValidatedAt,
			&b.WalletDistributed, &b.WalletDistributedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
