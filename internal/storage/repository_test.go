package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"soci/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "soci_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedMember(t *testing.T, repo *SQLiteRepository, number string, balance int64) int64 {
	t.Helper()
	id, err := repo.CreateMember(context.Background(), core.Member{
		MemberNumber: number,
		FullName:     "Test Member " + number,
		Email:        number + "@example.com",
		Status:       core.StatusActive,
		Balance:      core.Money{Cents: balance},
		CategoryID:   1,
		JoinedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	return id
}

func TestMemberCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedMember(t, repo, "SOC-0001", -12000)

	m, err := repo.GetMember(ctx, id)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.MemberNumber != "SOC-0001" || m.Balance.Cents != -12000 {
		t.Fatalf("unexpected member: %+v", m)
	}
	if !m.JoinedAt.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("joined_at round trip failed: %v", m.JoinedAt)
	}

	m.FullName = "Renamed Member"
	m.Status = core.StatusInactive
	if err := repo.UpdateMember(ctx, *m); err != nil {
		t.Fatalf("UpdateMember: %v", err)
	}

	active, err := repo.ListMembers(ctx, false)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active members, got %d", len(active))
	}
	all, err := repo.ListMembers(ctx, true)
	if err != nil {
		t.Fatalf("ListMembers all: %v", err)
	}
	if len(all) != 1 || all[0].FullName != "Renamed Member" {
		t.Fatalf("unexpected members: %+v", all)
	}

	if err := repo.SoftDeleteMember(ctx, id); err != nil {
		t.Fatalf("SoftDeleteMember: %v", err)
	}
	if _, err := repo.GetMember(ctx, id); err != core.ErrMemberNotFound {
		t.Fatalf("expected ErrMemberNotFound after delete, got %v", err)
	}
}

func TestRecordPaymentUpdatesBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedMember(t, repo, "SOC-0002", -10000)

	payID, err := repo.RecordPayment(ctx, core.Payment{
		MemberID:      id,
		Amount:        core.Money{Cents: 4000},
		PaidAt:        time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
		ReceiptNumber: "RCV-1",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	m, err := repo.GetMember(ctx, id)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.Balance.Cents != -6000 {
		t.Fatalf("balance = %d, want -6000", m.Balance.Cents)
	}

	pays, err := repo.ListPaymentsByMember(ctx, id)
	if err != nil {
		t.Fatalf("ListPaymentsByMember: %v", err)
	}
	if len(pays) != 1 || pays[0].ID != payID {
		t.Fatalf("unexpected payments: %+v", pays)
	}

	detail, err := repo.GetPaymentDetail(ctx, payID)
	if err != nil {
		t.Fatalf("GetPaymentDetail: %v", err)
	}
	if detail.MemberNumber != "SOC-0002" {
		t.Fatalf("detail member number = %s", detail.MemberNumber)
	}
}

func TestRecordPaymentUnknownMemberRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.RecordPayment(ctx, core.Payment{
		MemberID:      999,
		Amount:        core.Money{Cents: 100},
		PaidAt:        time.Now(),
		ReceiptNumber: "RCV-X",
	})
	if err != core.ErrMemberNotFound {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
	pays, err := repo.ListPayments(ctx)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(pays) != 0 {
		t.Fatalf("payment row should have rolled back, got %d", len(pays))
	}
}

func TestRateOverridesRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) == 0 {
		t.Fatalf("expected seeded categories")
	}
	catID := cats[0].ID

	rates := core.DefaultProRataRates(core.Money{Cents: 12000})
	rates[time.June] = core.Money{Cents: 5000}
	if err := repo.ReplaceProRataRates(ctx, catID, rates); err != nil {
		t.Fatalf("ReplaceProRataRates: %v", err)
	}

	cat, err := repo.GetCategory(ctx, catID)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if len(cat.Overrides) != 12 {
		t.Fatalf("expected 12 overrides, got %d", len(cat.Overrides))
	}
	if cat.Overrides[time.June].Cents != 5000 {
		t.Fatalf("June override = %d, want 5000", cat.Overrides[time.June].Cents)
	}
}

func TestApplicationLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	appID, err := repo.CreateApplication(ctx, core.Application{
		FullName:   "Giulia Verdi",
		Email:      "giulia@example.com",
		CategoryID: 1,
		JoinMonth:  time.September,
		QuotedFee:  core.Money{Cents: 8500},
		Status:     core.ApplicationPending,
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	pending, err := repo.ListApplications(ctx, core.ApplicationPending)
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending application, got %d", len(pending))
	}

	memberID, err := repo.ApproveApplication(ctx, appID, core.Member{
		MemberNumber: "SOC-0003",
		FullName:     "Giulia Verdi",
		Email:        "giulia@example.com",
		Status:       core.StatusActive,
		Balance:      core.Money{Cents: -8500},
		CategoryID:   1,
		JoinedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("ApproveApplication: %v", err)
	}

	app, err := repo.GetApplication(ctx, appID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if app.Status != core.ApplicationApproved || app.MemberID != memberID {
		t.Fatalf("unexpected application after approval: %+v", app)
	}

	m, err := repo.GetMember(ctx, memberID)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.Balance.Cents != -8500 {
		t.Fatalf("opening balance = %d, want -8500", m.Balance.Cents)
	}

	// A second approval must fail: the application is no longer pending
	if _, err := repo.ApproveApplication(ctx, appID, core.Member{
		MemberNumber: "SOC-0004", FullName: "x", Email: "x@y.z",
		Status: core.StatusActive, CategoryID: 1, JoinedAt: time.Now(),
	}); err != ErrApplicationNotFound {
		t.Fatalf("expected ErrApplicationNotFound on re-approve, got %v", err)
	}
}

func TestSyncQueueLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedMember(t, repo, "SOC-0005", -5000)
	payID, err := repo.RecordPayment(ctx, core.Payment{
		MemberID:      id,
		Amount:        core.Money{Cents: 5000},
		PaidAt:        time.Now(),
		ReceiptNumber: "RCV-5",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	pending, err := repo.GetPendingSyncPayments(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncPayments: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != payID {
		t.Fatalf("unexpected pending queue: %+v", pending)
	}

	claimed, err := repo.MarkPaymentProcessing(ctx, payID)
	if err != nil || !claimed {
		t.Fatalf("MarkPaymentProcessing = %v, %v", claimed, err)
	}
	// Second claim loses
	claimed, err = repo.MarkPaymentProcessing(ctx, payID)
	if err != nil || claimed {
		t.Fatalf("second claim should fail, got %v, %v", claimed, err)
	}

	n, err := repo.ResetStaleProcessing(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ResetStaleProcessing = %d, %v", n, err)
	}

	if err := repo.MarkPaymentSynced(ctx, payID); err != nil {
		t.Fatalf("MarkPaymentSynced: %v", err)
	}
	pending, err = repo.GetPendingSyncPayments(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncPayments: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("queue should be empty after sync, got %d", len(pending))
	}
}

func TestMarkPaymentSyncErrorRetriesThenParks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedMember(t, repo, "SOC-0006", -5000)
	payID, err := repo.RecordPayment(ctx, core.Payment{
		MemberID:      id,
		Amount:        core.Money{Cents: 5000},
		PaidAt:        time.Now(),
		ReceiptNumber: "RCV-6",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.MarkPaymentSyncError(ctx, payID); err != nil {
			t.Fatalf("MarkPaymentSyncError: %v", err)
		}
		pending, err := repo.GetPendingSyncPayments(ctx, 10)
		if err != nil {
			t.Fatalf("GetPendingSyncPayments: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("attempt %d: payment should still be pending", i+1)
		}
	}

	// Third failure parks the payment as 'error'
	if err := repo.MarkPaymentSyncError(ctx, payID); err != nil {
		t.Fatalf("MarkPaymentSyncError: %v", err)
	}
	pending, err := repo.GetPendingSyncPayments(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncPayments: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("payment should leave the retry queue after 3 attempts")
	}
}

func TestOverview(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedMember(t, repo, "SOC-0007", -12000)
	seedMember(t, repo, "SOC-0008", 0)

	ov, err := repo.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.TotalMembers != 2 || ov.ActiveMembers != 2 {
		t.Fatalf("counts = %d/%d, want 2/2", ov.TotalMembers, ov.ActiveMembers)
	}
	if ov.OutstandingTotal.Cents != 12000 {
		t.Fatalf("outstanding total = %d, want 12000", ov.OutstandingTotal.Cents)
	}
	if len(ov.ByCategory) == 0 {
		t.Fatalf("expected per-category rows")
	}
}
