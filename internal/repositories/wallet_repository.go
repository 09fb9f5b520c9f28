package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
)

type WalletRepository struct {
	DB *sql.DB
}

func (r WalletRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const walletColumns = `id, user_id, COALESCE(balance,0), COALESCE(pending_balance,0), COALESCE(currency,''), COALESCE(is_active,1)`

// GetByUserID fetches a wallet without locking (read endpoints only; ledger
// mutations go through GetForUpdateTx).
func (r WalletRepository) GetByUserID(userID int64) (models.Wallet, error) {
	var w models.Wallet
	err := r.db().QueryRow(`SELECT `+walletColumns+` FROM wallets WHERE user_id=? LIMIT 1`, userID).
		Scan(&w.ID, &w.UserID, &w.Balance, &w.PendingBalance, &w.Currency, &w.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, domain.NotFoundError{Resource: "wallet"}
	}
	return w, err
}

// GetForUpdateTx locks the wallet row for the duration of the transaction,
// creating a zero-balance wallet on first use. Concurrent credits to the
// same wallet serialize on this lock.
func (r WalletRepository) GetForUpdateTx(tx *sql.Tx, userID int64, currency string) (models.Wallet, error) {
	var w models.Wallet
	err := tx.QueryRow(`SELECT `+walletColumns+` FROM wallets WHERE user_id=? LIMIT 1 FOR UPDATE`, userID).
		Scan(&w.ID, &w.UserID, &w.Balance, &w.PendingBalance, &w.Currency, &w.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		now := time.Now().UTC()
		res, err := tx.Exec(`
			INSERT INTO wallets (user_id, balance, pending_balance, currency, is_active, created_at, updated_at)
			VALUES (?, 0, 0, ?, 1, ?, ?)`,
			userID, currency, now, now)
		if err != nil {
			return models.Wallet{}, err
		}
		id, _ := res.LastInsertId()
		return models.Wallet{ID: id, UserID: userID, Currency: currency, IsActive: true}, nil
	}
	return w, err
}

// UpdateBalancesTx writes the new wallet position inside the mutation tx.
func (r WalletRepository) UpdateBalancesTx(tx *sql.Tx, walletID, balance, pending int64) error {
	if balance < 0 || pending < 0 {
		return domain.LedgerConsistencyError{WalletID: walletID, Msg: "negative balance write attempted"}
	}
	_, err := tx.Exec(`UPDATE wallets SET balance=?, pending_balance=?, updated_at=? WHERE id=?`,
		balance, pending, time.Now().UTC(), walletID)
	return err
}

// AppendTransactionTx writes the immutable ledger row for one mutation.
func (r WalletRepository) AppendTransactionTx(tx *sql.Tx, t models.WalletTransaction) error {
	_, err := tx.Exec(`
		INSERT INTO wallet_transactions
			(wallet_id, user_id, direction, amount,
			 balance_before, balance_after, pending_before, pending_after,
			 reference, reason, booking_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.WalletID, t.UserID, t.Direction, t.Amount,
		t.BalanceBefore, t.BalanceAfter, t.PendingBefore, t.PendingAfter,
		t.Reference, t.Reason, t.BookingID, time.Now().UTC())
	return err
}

// ListTransactions pages a user's ledger history, newest first.
func (r WalletRepository) ListTransactions(userID int64, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db().Query(`
		SELECT id, wallet_id, user_id, direction, amount,
		       balance_before, balance_after, pending_before, pending_after,
		       COALESCE(reference,''), COALESCE(reason,''), COALESCE(booking_id,0), created_at
		FROM wallet_transactions
		WHERE user_id=?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WalletTransaction
	for rows.Next() {
		var t models.WalletTransaction
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.UserID, &t.Direction, &t.Amount,
			&t.BalanceBefore, &t.BalanceAfter, &t.PendingBefore, &t.PendingAfter,
			&t.Reference, &t.Reason, &t.BookingID, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
