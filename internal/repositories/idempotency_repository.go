package repositories

import (
	"database/sql"
	"strings"
	"time"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
)

// IdempotencyRepository claims (correlation_id, operation) keys backed by a
// unique constraint, so the storage layer enforces once-only processing
// instead of an application-level read-then-check race.
type IdempotencyRepository struct {
	DB *sql.DB
}

func (r IdempotencyRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// ClaimTx inserts the key inside the caller's transaction. A duplicate-key
// error means another delivery already claimed it; callers treat that as
// DuplicateEventError. The claim commits or rolls back with the money steps.
func (r IdempotencyRepository) ClaimTx(tx *sql.Tx, correlationID, operation string) error {
	_, err := tx.Exec(`
		INSERT INTO idempotency_keys (correlation_id, operation, created_at)
		VALUES (?, ?, ?)`,
		correlationID, operation, time.Now().UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return domain.DuplicateEventError{CorrelationID: correlationID, Operation: operation}
		}
		return err
	}
	return nil
}

// isDuplicateKey detects MySQL error 1062 without importing the driver's
// error type into every caller.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 1062") || strings.Contains(msg, "Duplicate entry")
}
