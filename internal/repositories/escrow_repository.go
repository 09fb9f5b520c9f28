package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
)

type EscrowRepository struct {
	DB *sql.DB
}

func (r EscrowRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const escrowColumns = `id, COALESCE(reference,''), payer_id, recipient_id, amount,
	COALESCE(currency,''), status, COALESCE(provider_ref,''), COALESCE(release_terms,''),
	created_at, updated_at, held_at, closed_at`

func scanEscrow(scan func(dest ...any) error) (models.EscrowTransaction, error) {
	var e models.EscrowTransaction
	err := scan(
		&e.ID, &e.Reference, &e.PayerID, &e.RecipientID, &e.Amount,
		&e.Currency, &e.Status, &e.ProviderRef, &e.ReleaseTerms,
		&e.CreatedAt, &e.UpdatedAt, &e.HeldAt, &e.ClosedAt,
	)
	return e, err
}

// Create inserts a new escrow transaction in INITIATED state.
func (r EscrowRepository) Create(e models.EscrowTransaction) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db().Exec(`
		INSERT INTO escrow_transactions
			(reference, payer_id, recipient_id, amount, currency, status, provider_ref, release_terms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Reference, e.PayerID, e.RecipientID, e.Amount, e.Currency,
		models.EscrowInitiated, e.ProviderRef, e.ReleaseTerms, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID fetches one escrow transaction.
func (r EscrowRepository) GetByID(id int64) (models.EscrowTransaction, error) {
	row := r.db().QueryRow(`SELECT `+escrowColumns+` FROM escrow_transactions WHERE id=? LIMIT 1`, id)
	e, err := scanEscrow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EscrowTransaction{}, domain.NotFoundError{Resource: "escrow transaction"}
	}
	return e, err
}

// GetByProviderRef resolves an escrow row from a provider correlation id.
func (r EscrowRepository) GetByProviderRef(ref string) (models.EscrowTransaction, error) {
	row := r.db().QueryRow(`SELECT `+escrowColumns+` FROM escrow_transactions WHERE provider_ref=? LIMIT 1`, ref)
	e, err := scanEscrow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EscrowTransaction{}, domain.NotFoundError{Resource: "escrow transaction"}
	}
	return e, err
}

// SetProviderRef stores the collection correlation id after the provider
// accepts the deposit.
func (r EscrowRepository) SetProviderRef(id int64, ref string) error {
	_, err := r.db().Exec(`UPDATE escrow_transactions SET provider_ref=?, updated_at=? WHERE id=?`,
		ref, time.Now().UTC(), id)
	return err
}

// TransitionTx moves an escrow along one legal edge with a compare-and-set
// on the current status; zero rows affected means a concurrent transition
// won the race.
func (r EscrowRepository) TransitionTx(tx *sql.Tx, id int64, from, to string) (bool, error) {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	switch to {
	case models.EscrowHeld:
		res, err = tx.Exec(`UPDATE escrow_transactions SET status=?, held_at=?, updated_at=? WHERE id=? AND status=?`,
			to, now, now, id, from)
	case models.EscrowReleased, models.EscrowRefunded, models.EscrowFailed, models.EscrowCancelled:
		res, err = tx.Exec(`UPDATE escrow_transactions SET status=?, closed_at=?, updated_at=? WHERE id=? AND status=?`,
			to, now, now, id, from)
	default:
		res, err = tx.Exec(`UPDATE escrow_transactions SET status=?, updated_at=? WHERE id=? AND status=?`,
			to, now, id, from)
	}
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Transition is the non-transactional variant for state moves with no money
// attached (INITIATED→PENDING, PENDING→FAILED).
func (r EscrowRepository) Transition(id int64, from, to string) (bool, error) {
	tx, err := r.db().Begin()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()
	ok, err := r.TransitionTx(tx, id, from, to)
	if err != nil {
		return false, err
	}
	return ok, tx.Commit()
}

// ListStalePending returns PENDING escrows older than the deadline for the
// timeout sweep.
func (r EscrowRepository) ListStalePending(olderThan time.Time, limit int) ([]models.EscrowTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db().Query(`
		SELECT `+escrowColumns+`
		FROM escrow_transactions
		WHERE status=? AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?`,
		models.EscrowPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EscrowTransaction
	for rows.Next() {
		e, err := scanEscrow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OpenDispute returns the open dispute on an escrow, if any.
func (r EscrowRepository) OpenDispute(escrowID int64) (models.EscrowDispute, bool, error) {
	var d models.EscrowDispute
	err := r.db().QueryRow(`
		SELECT id, escrow_id, raised_by, COALESCE(reason,''), status, COALESCE(resolution,''), COALESCE(split_pct,0), COALESCE(resolved_by,0), created_at, resolved_at
		FROM escrow_disputes
		WHERE escrow_id=? AND status=? LIMIT 1`,
		escrowID, models.DisputeOpen).
		Scan(&d.ID, &d.EscrowID, &d.RaisedBy, &d.Reason, &d.Status, &d.Resolution, &d.SplitPct, &d.ResolvedBy, &d.CreatedAt, &d.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EscrowDispute{}, false, nil
	}
	if err != nil {
		return models.EscrowDispute{}, false, err
	}
	return d, true, nil
}

// OpenDisputeTx is the transactional variant, locking the dispute row so a
// settlement decision and a concurrent dispute cannot interleave.
func (r EscrowRepository) OpenDisputeTx(tx *sql.Tx, escrowID int64) (models.EscrowDispute, bool, error) {
	var d models.EscrowDispute
	err := tx.QueryRow(`
		SELECT id, escrow_id, raised_by, COALESCE(reason,''), status, COALESCE(resolution,''), COALESCE(split_pct,0), COALESCE(resolved_by,0), created_at, resolved_at
		FROM escrow_disputes
		WHERE escrow_id=? AND status=? LIMIT 1 FOR UPDATE`,
		escrowID, models.DisputeOpen).
		Scan(&d.ID, &d.EscrowID, &d.RaisedBy, &d.Reason, &d.Status, &d.Resolution, &d.SplitPct, &d.ResolvedBy, &d.CreatedAt, &d.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EscrowDispute{}, false, nil
	}
	if err != nil {
		return models.EscrowDispute{}, false, err
	}
	return d, true, nil
}

// CreateDispute attaches an open dispute to an escrow.
func (r EscrowRepository) CreateDispute(d models.EscrowDispute) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO escrow_disputes (escrow_id, raised_by, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.EscrowID, d.RaisedBy, d.Reason, models.DisputeOpen, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ResolveDisputeTx marks the dispute resolved inside the resolution tx.
func (r EscrowRepository) ResolveDisputeTx(tx *sql.Tx, disputeID, arbiterID int64, resolution string, splitPct int64) (bool, error) {
	now := time.Now().UTC()
	res, err := tx.Exec(`
		UPDATE escrow_disputes
		SET status=?, resolution=?, split_pct=?, resolved_by=?, resolved_at=?
		WHERE id=? AND status=?`,
		models.DisputeResolved, resolution, splitPct, arbiterID, now, disputeID, models.DisputeOpen)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
