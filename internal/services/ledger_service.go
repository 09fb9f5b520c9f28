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

// LedgerService is the only component permitted to mutate wallet balances.
// Every mutation locks the wallet row, computes the new position, writes it,
// and appends exactly one wallet_transactions row, all inside one
// transaction. Balances are never cached; each mutation re-reads current
// state under the row lock.
type LedgerService struct {
	DB        *sql.DB
	Wallets   repositories.WalletRepository
	Provider  provider.Adapter
	Currency  string
	RequestID string
}

func (s LedgerService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s LedgerService) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return "USD"
}

// CreditTx credits amount to a user's wallet inside the caller's
// transaction. toPending routes funds into the held bucket (host/agent
// shares before check-in); otherwise they land withdrawable (platform
// share, escrow releases).
func (s LedgerService) CreditTx(tx *sql.Tx, userID, amount int64, toPending bool, reason, reference string, bookingID int64) error {
	if amount <= 0 {
		return domain.ValidationError{Field: "amount", Msg: "credit must be positive"}
	}

	w, err := s.Wallets.GetForUpdateTx(tx, userID, s.currency())
	if err != nil {
		return err
	}

	balance, pending := w.Balance, w.PendingBalance
	if toPending {
		pending += amount
	} else {
		balance += amount
	}
	if balance < 0 || pending < 0 {
		return domain.LedgerConsistencyError{WalletID: w.ID, Msg: "credit computed a negative balance"}
	}

	if err := s.Wallets.UpdateBalancesTx(tx, w.ID, balance, pending); err != nil {
		return err
	}
	if err := s.Wallets.AppendTransactionTx(tx, models.WalletTransaction{
		WalletID:      w.ID,
		UserID:        userID,
		Direction:     models.TxCredit,
		Amount:        amount,
		BalanceBefore: w.Balance,
		BalanceAfter:  balance,
		PendingBefore: w.PendingBalance,
		PendingAfter:  pending,
		Reference:     reference,
		Reason:        reason,
		BookingID:     bookingID,
	}); err != nil {
		return err
	}

	utils.LogEvent(s.RequestID, "ledger", "credit",
		fmt.Sprintf("user_id=%d amount=%s pending=%t ref=%s", userID, utils.FormatMinor(amount), toPending, reference))
	return nil
}

// ReleaseTx moves amount from pending to available. Invoked only by the
// check-in gate and dispute resolution, never by the settlement
// orchestrator directly.
func (s LedgerService) ReleaseTx(tx *sql.Tx, userID, amount int64, reason, reference string, bookingID int64) error {
	if amount <= 0 {
		return domain.ValidationError{Field: "amount", Msg: "release must be positive"}
	}

	w, err := s.Wallets.GetForUpdateTx(tx, userID, s.currency())
	if err != nil {
		return err
	}
	if w.PendingBalance < amount {
		return domain.LedgerConsistencyError{
			WalletID: w.ID,
			Msg:      fmt.Sprintf("release of %d exceeds pending balance %d", amount, w.PendingBalance),
		}
	}

	balance := w.Balance + amount
	pending := w.PendingBalance - amount

	if err := s.Wallets.UpdateBalancesTx(tx, w.ID, balance, pending); err != nil {
		return err
	}
	if err := s.Wallets.AppendTransactionTx(tx, models.WalletTransaction{
		WalletID:      w.ID,
		UserID:        userID,
		Direction:     models.TxRelease,
		Amount:        amount,
		BalanceBefore: w.Balance,
		BalanceAfter:  balance,
		PendingBefore: w.PendingBalance,
		PendingAfter:  pending,
		Reference:     reference,
		Reason:        reason,
		BookingID:     bookingID,
	}); err != nil {
		return err
	}

	utils.LogEvent(s.RequestID, "ledger", "release",
		fmt.Sprintf("user_id=%d amount=%s ref=%s", userID, utils.FormatMinor(amount), reference))
	return nil
}

// DebitTx removes amount from the available balance, rejecting overdrafts.
func (s LedgerService) DebitTx(tx *sql.Tx, userID, amount int64, reason, reference string) error {
	if amount <= 0 {
		return domain.ValidationError{Field: "amount", Msg: "debit must be positive"}
	}

	w, err := s.Wallets.GetForUpdateTx(tx, userID, s.currency())
	if err != nil {
		return err
	}
	if w.Balance < amount {
		return domain.InsufficientFundsError{UserID: userID, Requested: amount, Available: w.Balance}
	}

	balance := w.Balance - amount
	if err := s.Wallets.UpdateBalancesTx(tx, w.ID, balance, w.PendingBalance); err != nil {
		return err
	}
	if err := s.Wallets.AppendTransactionTx(tx, models.WalletTransaction{
		WalletID:      w.ID,
		UserID:        userID,
		Direction:     models.TxDebit,
		Amount:        amount,
		BalanceBefore: w.Balance,
		BalanceAfter:  balance,
		PendingBefore: w.PendingBalance,
		PendingAfter:  w.PendingBalance,
		Reference:     reference,
		Reason:        reason,
	}); err != nil {
		return err
	}

	utils.LogEvent(s.RequestID, "ledger", "debit",
		fmt.Sprintf("user_id=%d amount=%s ref=%s", userID, utils.FormatMinor(amount), reference))
	return nil
}

// Credit opens its own transaction around CreditTx.
func (s LedgerService) Credit(userID, amount int64, toPending bool, reason, reference string, bookingID int64) error {
	tx, err := s.db().Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.CreditTx(tx, userID, amount, toPending, reason, reference, bookingID); err != nil {
		return err
	}
	return tx.Commit()
}

// Withdraw debits the wallet and pushes a payout through the provider. The
// debit and the payout commit together: a provider failure rolls the debit
// back, so funds never leave the wallet without a matching payout request.
// The wallet row lock serializes concurrent withdrawals for one user.
func (s LedgerService) Withdraw(ctx context.Context, userID, amount int64, destination string) (string, error) {
	if s.Provider == nil {
		return "", domain.ProviderError{Op: "payout", Err: fmt.Errorf("no provider configured")}
	}
	if _, err := provider.WholeUnits(amount); err != nil {
		return "", err
	}

	reference := utils.NewID()

	tx, err := s.db().Begin()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.DebitTx(tx, userID, amount, "wallet withdrawal", reference); err != nil {
		return "", err
	}

	if _, err := s.Provider.Payout(ctx, provider.PayoutRequest{
		Reference:   reference,
		Amount:      amount,
		Destination: destination,
		Narration:   "wallet withdrawal",
	}); err != nil {
		utils.LogEvent(s.RequestID, "ledger", "withdraw_failed",
			fmt.Sprintf("user_id=%d ref=%s err=%v", userID, reference, err))
		return "", err
	}

	// The provider has already accepted the payout when Commit runs. A
	// commit failure here leaves a sent payout with no recorded debit;
	// those surface in the provider payout report keyed by reference.
	if err := tx.Commit(); err != nil {
		utils.LogEvent(s.RequestID, "ledger", "withdraw_commit_failed",
			fmt.Sprintf("user_id=%d ref=%s err=%v", userID, reference, err))
		return "", err
	}
	return reference, nil
}
