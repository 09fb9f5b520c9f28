package repositories

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"stayhub/internal/domain"
)

func TestGetForUpdateTxCreatesWalletOnFirstUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM wallets WHERE user_id=(.+) FOR UPDATE").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(int64(42), "USD", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectRollback()

	tx, _ := db.Begin()
	defer tx.Rollback()

	w, err := (WalletRepository{}).GetForUpdateTx(tx, 42, "USD")
	if err != nil {
		t.Fatalf("get for update error: %v", err)
	}
	if w.ID != 7 || w.UserID != 42 {
		t.Fatalf("unexpected wallet %+v", w)
	}
	if w.Balance != 0 || w.PendingBalance != 0 {
		t.Fatalf("new wallet must start at zero, got %+v", w)
	}

	tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateBalancesTxRejectsNegativeWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, _ := db.Begin()
	defer tx.Rollback()

	err = (WalletRepository{}).UpdateBalancesTx(tx, 7, -1, 0)
	if !domain.IsLedgerConsistency(err) {
		t.Fatalf("expected ledger consistency error, got %v", err)
	}
	err = (WalletRepository{}).UpdateBalancesTx(tx, 7, 0, -1)
	if !domain.IsLedgerConsistency(err) {
		t.Fatalf("expected ledger consistency error, got %v", err)
	}
}

func TestGetByUserIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM wallets WHERE user_id=").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err = (WalletRepository{DB: db}).GetByUserID(42)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
