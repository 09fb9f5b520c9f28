package repositories

import (
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"stayhub/internal/domain"
)

func TestClaimTxInsertsKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs("ref-1", "settlement", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, _ := db.Begin()
	if err := (IdempotencyRepository{}).ClaimTx(tx, "ref-1", "settlement"); err != nil {
		t.Fatalf("claim error: %v", err)
	}
	tx.Commit()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClaimTxMapsDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WillReturnError(fmt.Errorf("Error 1062 (23000): Duplicate entry 'ref-1-settlement' for key 'uq_idempotency'"))
	mock.ExpectRollback()

	tx, _ := db.Begin()
	defer tx.Rollback()
	err = (IdempotencyRepository{}).ClaimTx(tx, "ref-1", "settlement")
	if !domain.IsDuplicateEvent(err) {
		t.Fatalf("expected duplicate event error, got %v", err)
	}
}

func TestClaimTxPassesThroughOtherErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WillReturnError(fmt.Errorf("Error 1205: Lock wait timeout exceeded"))
	mock.ExpectRollback()

	tx, _ := db.Begin()
	defer tx.Rollback()
	err = (IdempotencyRepository{}).ClaimTx(tx, "ref-1", "settlement")
	if err == nil || domain.IsDuplicateEvent(err) {
		t.Fatalf("lock timeout must not be treated as duplicate, got %v", err)
	}
}
