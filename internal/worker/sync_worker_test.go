package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"soci/internal/amqp"
	"soci/internal/core"
	"soci/internal/sheets/memory"
	"soci/internal/storage"
)

func newTestWorker(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "soci_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	ledger := memory.New()
	return NewSyncWorker(repo, ledger, 10), repo, ledger
}

func recordPayment(t *testing.T, repo *storage.SQLiteRepository, cents int64) int64 {
	t.Helper()
	ctx := context.Background()
	memberID, err := repo.CreateMember(ctx, core.Member{
		MemberNumber: "SOC-0001",
		FullName:     "Anna Bianchi",
		Email:        "anna@example.com",
		Status:       core.StatusActive,
		CategoryID:   1,
		JoinedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	id, err := repo.RecordPayment(ctx, core.Payment{
		MemberID:      memberID,
		Amount:        core.Money{Cents: cents},
		PaidAt:        time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		ReceiptNumber: "RCP-TEST-1",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	return id
}

func TestSyncWorker_HandleSyncMessage(t *testing.T) {
	w, repo, ledger := newTestWorker(t)
	ctx := context.Background()

	id := recordPayment(t, repo, 12000)

	msg := amqp.NewPaymentSyncMessage(id, 0)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	entries := ledger.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].MemberNumber != "SOC-0001" || entries[0].Amount.Cents != 12000 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}

	// Redelivery of the same message is a no-op
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage redelivery: %v", err)
	}
	if len(ledger.Entries()) != 1 {
		t.Error("redelivered message should not duplicate the ledger row")
	}
}

func TestSyncWorker_HandleSyncMessage_LedgerFailure(t *testing.T) {
	w, repo, ledger := newTestWorker(t)
	ctx := context.Background()

	id := recordPayment(t, repo, 4000)
	ledger.Fail(errors.New("sheets unavailable"))

	// Failure is absorbed: retries run through the sync queue, not the broker
	if err := w.HandleSyncMessage(ctx, amqp.NewPaymentSyncMessage(id, 0)); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	pending, err := repo.GetPendingSyncPayments(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncPayments: %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("payment should be requeued with one attempt, got %+v", pending)
	}
}

func TestSyncWorker_StartupSyncCheck(t *testing.T) {
	w, repo, ledger := newTestWorker(t)
	ctx := context.Background()

	id := recordPayment(t, repo, 9000)

	// Simulate a crash mid-export
	if _, err := repo.MarkPaymentProcessing(ctx, id); err != nil {
		t.Fatalf("MarkPaymentProcessing: %v", err)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(ledger.Entries()) != 1 {
		t.Fatalf("expected stale payment to be exported, got %d entries", len(ledger.Entries()))
	}
}

func TestSyncWorker_ProcessPendingPayments_Empty(t *testing.T) {
	w, _, ledger := newTestWorker(t)

	if err := w.ProcessPendingPayments(context.Background()); err != nil {
		t.Fatalf("ProcessPendingPayments: %v", err)
	}
	if len(ledger.Entries()) != 0 {
		t.Error("nothing to export, ledger should be empty")
	}
}
