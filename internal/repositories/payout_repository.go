package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
)

// PayoutRepository persists the per-payee rows created at settlement time:
// host_payments and agent_commissions, one per booking per payee.
type PayoutRepository struct {
	DB *sql.DB
}

func (r PayoutRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// CreateHostPaymentTx inserts the host's pending share for a booking.
func (r PayoutRepository) CreateHostPaymentTx(tx *sql.Tx, p models.HostPayment) error {
	now := time.Now().UTC()
	_, err := tx.Exec(`
		INSERT INTO host_payments
			(booking_id, host_id, gross_amount, net_amount, status, check_in_validated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		p.BookingID, p.HostID, p.GrossAmount, p.NetAmount, models.PayoutPending, now, now)
	return err
}

// CreateAgentCommissionTx inserts the agent's pending commission for a booking.
func (r PayoutRepository) CreateAgentCommissionTx(tx *sql.Tx, c models.AgentCommission) error {
	now := time.Now().UTC()
	_, err := tx.Exec(`
		INSERT INTO agent_commissions
			(booking_id, agent_id, gross_amount, commission_amount, status, check_in_validated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		c.BookingID, c.AgentID, c.GrossAmount, c.CommissionAmount, models.PayoutPending, now, now)
	return err
}

// GetHostPaymentForUpdateTx locks the host payment row of a booking.
func (r PayoutRepository) GetHostPaymentForUpdateTx(tx *sql.Tx, bookingID int64) (models.HostPayment, error) {
	var p models.HostPayment
	err := tx.QueryRow(`
		SELECT id, booking_id, host_id, gross_amount, net_amount, status, COALESCE(check_in_validated,0)
		FROM host_payments
		WHERE booking_id=? LIMIT 1 FOR UPDATE`, bookingID).
		Scan(&p.ID, &p.BookingID, &p.HostID, &p.GrossAmount, &p.NetAmount, &p.Status, &p.CheckInValidated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HostPayment{}, domain.NotFoundError{Resource: "host payment"}
	}
	return p, err
}

// GetAgentCommissionForUpdateTx locks the agent commission row of a booking.
// Missing row is normal when no agent participated.
func (r PayoutRepository) GetAgentCommissionForUpdateTx(tx *sql.Tx, bookingID int64) (models.AgentCommission, bool, error) {
	var c models.AgentCommission
	err := tx.QueryRow(`
		SELECT id, booking_id, agent_id, gross_amount, commission_amount, status, COALESCE(check_in_validated,0)
		FROM agent_commissions
		WHERE booking_id=? LIMIT 1 FOR UPDATE`, bookingID).
		Scan(&c.ID, &c.BookingID, &c.AgentID, &c.GrossAmount, &c.CommissionAmount, &c.Status, &c.CheckInValidated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AgentCommission{}, false, nil
	}
	if err != nil {
		return models.AgentCommission{}, false, err
	}
	return c, true, nil
}

// MarkHostPaymentTx advances a host payment along pending→approved once
// check-in validates.
func (r PayoutRepository) MarkHostPaymentTx(tx *sql.Tx, id int64, from, to string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE host_payments
		SET status=?, check_in_validated=1, updated_at=?
		WHERE id=? AND status=?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkAgentCommissionTx advances an agent commission along pending→earned.
func (r PayoutRepository) MarkAgentCommissionTx(tx *sql.Tx, id int64, from, to string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE agent_commissions
		SET status=?, check_in_validated=1, updated_at=?
		WHERE id=? AND status=?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetHostPayment reads the host payment of a booking without locking.
func (r PayoutRepository) GetHostPayment(bookingID int64) (models.HostPayment, error) {
	var p models.HostPayment
	err := r.db().QueryRow(`
		SELECT id, booking_id, host_id, gross_amount, net_amount, status, COALESCE(check_in_validated,0)
		FROM host_payments
		WHERE booking_id=? LIMIT 1`, bookingID).
		Scan(&p.ID, &p.BookingID, &p.HostID, &p.GrossAmount, &p.NetAmount, &p.Status, &p.CheckInValidated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HostPayment{}, domain.NotFoundError{Resource: "host payment"}
	}
	return p, err
}

// GetAgentCommission reads the agent commission of a booking without locking.
func (r PayoutRepository) GetAgentCommission(bookingID int64) (models.AgentCommission, bool, error) {
	var c models.AgentCommission
	err := r.db().QueryRow(`
		SELECT id, booking_id, agent_id, gross_amount, commission_amount, status, COALESCE(check_in_validated,0)
		FROM agent_commissions
		WHERE booking_id=? LIMIT 1`, bookingID).
		Scan(&c.ID, &c.BookingID, &c.AgentID, &c.GrossAmount, &c.CommissionAmount, &c.Status, &c.CheckInValidated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AgentCommission{}, false, nil
	}
	if err != nil {
		return models.AgentCommission{}, false, err
	}
	return c, true, nil
}
