package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"soci/internal/core"
	sheets "soci/internal/sheets"
)

func TestStore_Append(t *testing.T) {
	s := New()
	ctx := context.Background()

	entry := sheets.LedgerEntry{
		PaidAt:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		MemberNumber:  "SOC-0001",
		FullName:      "Anna Bianchi",
		Amount:        core.Money{Cents: 12000},
		ReceiptNumber: "RCP-1",
	}

	ref, err := s.Append(ctx, entry)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("Append() ref = %q, want %q", ref, "mem:1")
	}

	entry.ReceiptNumber = "RCP-2"
	ref, err = s.Append(ctx, entry)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:2" {
		t.Errorf("Append() ref = %q, want %q", ref, "mem:2")
	}

	got := s.Entries()
	if len(got) != 2 {
		t.Fatalf("Entries() len = %d, want 2", len(got))
	}
	if got[0].ReceiptNumber != "RCP-1" || got[1].ReceiptNumber != "RCP-2" {
		t.Errorf("unexpected entries: %+v", got)
	}
}

func TestStore_AppendRequiresReceipt(t *testing.T) {
	s := New()
	_, err := s.Append(context.Background(), sheets.LedgerEntry{
		MemberNumber: "SOC-0001",
		FullName:     "Anna Bianchi",
		Amount:       core.Money{Cents: 100},
	})
	if err == nil {
		t.Fatal("Append() should fail without a receipt number")
	}
	if len(s.Entries()) != 0 {
		t.Error("failed Append should not store an entry")
	}
}

func TestStore_Fail(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.Fail(boom)

	_, err := s.Append(context.Background(), sheets.LedgerEntry{ReceiptNumber: "RCP-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("Append() error = %v, want %v", err, boom)
	}

	s.Fail(nil)
	if _, err := s.Append(context.Background(), sheets.LedgerEntry{ReceiptNumber: "RCP-1"}); err != nil {
		t.Fatalf("Append() after recovery error = %v", err)
	}
}
