package services

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/provider"
	"stayhub/internal/repositories"
)

var bookingTestColumns = []string{
	"id", "listing_type", "guest_id", "host_id", "agent_id",
	"amount", "currency", "payment_status", "status", "transaction_id",
	"check_in_code", "check_in_validated", "check_in_validated_at", "check_in_validated_by",
	"check_out_validated", "check_out_validated_at",
	"wallet_distributed", "wallet_distributed_at",
}

func bookingRow(id, hostID, agentID, amount int64, paymentStatus, status, refID string, distributed bool) *sqlmock.Rows {
	return sqlmock.NewRows(bookingTestColumns).AddRow(
		id, "property", int64(20), hostID, agentID,
		amount, "USD", paymentStatus, status, refID,
		"", false, nil, int64(0),
		false, nil,
		distributed, nil,
	)
}

func newSettlementService(db *sql.DB) SettlementService {
	return SettlementService{
		DB:          db,
		Bookings:    repositories.BookingRepository{DB: db},
		Payouts:     repositories.PayoutRepository{},
		Idempotency: repositories.IdempotencyRepository{},
		Ledger:      LedgerService{Wallets: repositories.WalletRepository{}},
		Rule:        intconfig.SplitRule{PlatformPct: 5, AgentPct: 10},

		PlatformUserID: 1,
	}
}

func TestProcessEventSuccessCreditsEachPartyOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	refID := "ref-xyz"

	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs(refID).
		WillReturnRows(bookingRow(10, 2, 3, 100000, "pending", "pending", refID, false))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(refID, "settlement", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM bookings WHERE id=(.+) FOR UPDATE").
		WithArgs(int64(10)).
		WillReturnRows(bookingRow(10, 2, 3, 100000, "pending", "pending", refID, false))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("completed", "confirmed", sqlmock.AnyArg(), int64(10), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("INSERT INTO host_payments").
		WithArgs(int64(10), int64(2), int64(100000), int64(85000), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO agent_commissions").
		WithArgs(int64(10), int64(3), int64(100000), int64(10000), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// platform share lands available
	mock.ExpectQuery("FROM wallets WHERE user_id=(.+) FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(walletRows(100, 1, 0, 0))
	mock.ExpectExec("UPDATE wallets SET balance=").
		WithArgs(int64(5000), int64(0), sqlmock.AnyArg(), int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// host share held pending until check-in
	mock.ExpectQuery("FROM wallets WHERE user_id=(.+) FOR UPDATE").
		WithArgs(int64(2)).
		WillReturnRows(walletRows(101, 2, 0, 0))
	mock.ExpectExec("UPDATE wallets SET balance=").
		WithArgs(int64(0), int64(85000), sqlmock.AnyArg(), int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// agent commission held pending until check-in
	mock.ExpectQuery("FROM wallets WHERE user_id=(.+) FOR UPDATE").
		WithArgs(int64(3)).
		WillReturnRows(walletRows(102, 3, 0, 0))
	mock.ExpectExec("UPDATE wallets SET balance=").
		WithArgs(int64(0), int64(10000), sqlmock.AnyArg(), int64(102)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("UPDATE bookings SET wallet_distributed=1").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newSettlementService(db)
	if err := svc.ProcessEvent(provider.Event{RefID: refID, Status: provider.StatusSuccess, Amount: 100000}); err != nil {
		t.Fatalf("process event error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessEventDuplicateIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	refID := "ref-dup"
	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs(refID).
		WillReturnRows(bookingRow(10, 2, 3, 100000, "completed", "confirmed", refID, true))

	svc := newSettlementService(db)
	err = svc.ProcessEvent(provider.Event{RefID: refID, Status: provider.StatusSuccess})
	if !domain.IsDuplicateEvent(err) {
		t.Fatalf("expected duplicate event error, got %v", err)
	}

	// no transaction, no money movement
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessEventConcurrentClaimAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	refID := "ref-race"
	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs(refID).
		WillReturnRows(bookingRow(10, 2, 0, 100000, "pending", "pending", refID, false))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WillReturnError(fmt.Errorf("Error 1062 (23000): Duplicate entry 'ref-race-settlement' for key 'uq_idempotency'"))
	mock.ExpectRollback()

	svc := newSettlementService(db)
	err = svc.ProcessEvent(provider.Event{RefID: refID, Status: provider.StatusSuccess})
	if !domain.IsDuplicateEvent(err) {
		t.Fatalf("expected duplicate event error from claim, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessEventSuccessAfterFailureCreditsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	// out-of-order delivery: the FAILED event already landed, now a late
	// SUCCESS arrives for the same reference
	refID := "ref-reorder"
	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs(refID).
		WillReturnRows(bookingRow(10, 2, 3, 100000, "failed", "pending", refID, false))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(refID, "settlement", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM bookings WHERE id=(.+) FOR UPDATE").
		WithArgs(int64(10)).
		WillReturnRows(bookingRow(10, 2, 3, 100000, "failed", "pending", refID, false))
	// the completion CAS matches zero rows; everything after it must abort
	mock.ExpectExec("UPDATE bookings").
		WithArgs("completed", "confirmed", sqlmock.AnyArg(), int64(10), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	svc := newSettlementService(db)
	err = svc.ProcessEvent(provider.Event{RefID: refID, Status: provider.StatusSuccess, Amount: 100000})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for failed booking, got %v", err)
	}

	// no payout rows, no wallet credits, no distributed fence
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessEventFailureMarksBookingOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	refID := "ref-fail"
	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs(refID).
		WillReturnRows(bookingRow(10, 2, 0, 100000, "pending", "pending", refID, false))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("failed", sqlmock.AnyArg(), int64(10), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := newSettlementService(db)
	if err := svc.ProcessEvent(provider.Event{RefID: refID, Status: provider.StatusFailed}); err != nil {
		t.Fatalf("process event error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessEventFailureNeverDowngradesCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	refID := "ref-late-fail"
	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs(refID).
		WillReturnRows(bookingRow(10, 2, 0, 100000, "completed", "confirmed", refID, true))
	// the CAS matches zero rows, booking stays completed
	mock.ExpectExec("UPDATE bookings").
		WithArgs("failed", sqlmock.AnyArg(), int64(10), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	svc := newSettlementService(db)
	if err := svc.ProcessEvent(provider.Event{RefID: refID, Status: provider.StatusFailed}); err != nil {
		t.Fatalf("process event error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessEventUnmatchedReferenceIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs("ref-unknown").
		WillReturnError(sql.ErrNoRows)

	svc := newSettlementService(db)
	if err := svc.ProcessEvent(provider.Event{RefID: "ref-unknown", Status: provider.StatusSuccess}); err != nil {
		t.Fatalf("unmatched event should be a no-op, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessEventPendingChangesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	refID := "ref-pend"
	mock.ExpectQuery("FROM bookings WHERE transaction_id=").
		WithArgs(refID).
		WillReturnRows(bookingRow(10, 2, 0, 100000, "pending", "pending", refID, false))

	svc := newSettlementService(db)
	if err := svc.ProcessEvent(provider.Event{RefID: refID, Status: provider.StatusPending}); err != nil {
		t.Fatalf("pending event should change nothing, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
