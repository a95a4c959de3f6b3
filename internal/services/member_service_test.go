package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"soci/internal/core"
	"soci/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "soci_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMemberService_CreateMember(t *testing.T) {
	svc := NewMemberService(newTestStorage(t), nil)
	ctx := context.Background()

	m, err := svc.CreateMember(ctx, core.Member{
		FullName:   "Anna Bianchi",
		Email:      "anna@example.com",
		CategoryID: 1,
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	if m.ID == 0 {
		t.Error("expected member ID to be set")
	}
	if !strings.HasPrefix(m.MemberNumber, "SOC-") {
		t.Errorf("member number %q should have SOC- prefix", m.MemberNumber)
	}
	if m.Status != core.StatusActive {
		t.Errorf("status = %q, want active", m.Status)
	}
	if m.JoinedAt.IsZero() {
		t.Error("joined_at should default to now")
	}
}

func TestMemberService_CreateMember_UnknownCategory(t *testing.T) {
	svc := NewMemberService(newTestStorage(t), nil)

	_, err := svc.CreateMember(context.Background(), core.Member{
		FullName:   "Anna Bianchi",
		Email:      "anna@example.com",
		CategoryID: 999,
	})
	if !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("error = %v, want ErrInvalidCategory", err)
	}
}

func TestMemberService_RecordPayment(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewMemberService(repo, nil)
	ctx := context.Background()

	m, err := svc.CreateMember(ctx, core.Member{
		FullName:   "Bruno Conti",
		Email:      "bruno@example.com",
		CategoryID: 1,
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	paidAt := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	p, err := svc.RecordPayment(ctx, m.ID, core.Money{Cents: 4000}, paidAt)
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if !strings.HasPrefix(p.ReceiptNumber, "RCP-") {
		t.Errorf("receipt number %q should have RCP- prefix", p.ReceiptNumber)
	}

	got, err := svc.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if got.Balance.Cents != 4000 {
		t.Errorf("balance = %d, want 4000", got.Balance.Cents)
	}

	payments, err := svc.ListPaymentsByMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListPaymentsByMember: %v", err)
	}
	if len(payments) != 1 || payments[0].Amount.Cents != 4000 {
		t.Fatalf("unexpected payments: %+v", payments)
	}
}

func TestMemberService_RecordPayment_Invalid(t *testing.T) {
	svc := NewMemberService(newTestStorage(t), nil)
	ctx := context.Background()

	if _, err := svc.RecordPayment(ctx, 1, core.Money{Cents: 0}, time.Now()); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.RecordPayment(ctx, 1, core.Money{Cents: -500}, time.Now()); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.RecordPayment(ctx, 999, core.Money{Cents: 500}, time.Now()); !errors.Is(err, core.ErrMemberNotFound) {
		t.Errorf("unknown member error = %v, want ErrMemberNotFound", err)
	}
}

func TestMemberService_Outstanding(t *testing.T) {
	repo := newTestStorage(t)
	members := NewMemberService(repo, nil)
	apps := NewApplicationService(repo)
	ctx := context.Background()

	// An approved member starts owing the quoted fee
	app, err := apps.Submit(ctx, core.Application{
		FullName:   "Carla Dotti",
		Email:      "carla@example.com",
		CategoryID: 1,
		JoinMonth:  time.March,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	debtor, err := apps.Approve(ctx, app.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// A member with no debt stays out of the report
	if _, err := members.CreateMember(ctx, core.Member{
		FullName:   "Dario Esposito",
		Email:      "dario@example.com",
		CategoryID: 1,
	}); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	report, err := members.Outstanding(ctx, core.OutstandingFilter{}, now)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if len(report.Members) != 1 {
		t.Fatalf("expected 1 outstanding member, got %d", len(report.Members))
	}
	if report.Members[0].Member.ID != debtor.ID {
		t.Errorf("outstanding member = %d, want %d", report.Members[0].Member.ID, debtor.ID)
	}
	if report.Total.Cents != -debtor.Balance.Cents {
		t.Errorf("total = %d, want %d", report.Total.Cents, -debtor.Balance.Cents)
	}
}
