package core

import (
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestMemberValidate(t *testing.T) {
	good := Member{
		FullName:   "Anna Bianchi",
		Email:      "anna@example.com",
		Status:     StatusActive,
		CategoryID: 1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Member{
		{FullName: "", Email: "a@b.com", Status: StatusActive, CategoryID: 1},
		{FullName: "a", Email: "not-an-email", Status: StatusActive, CategoryID: 1},
		{FullName: "a", Email: "a@b.com", Status: "frozen", CategoryID: 1},
		{FullName: "a", Email: "a@b.com", Status: StatusActive, CategoryID: 0},
	}
	for i, m := range bads {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMemberOwes(t *testing.T) {
	if (Member{Balance: Money{Cents: -1}}).Owes() != true {
		t.Fatalf("negative balance should owe")
	}
	if (Member{Balance: Money{Cents: 0}}).Owes() {
		t.Fatalf("zero balance should not owe")
	}
	if (Member{Balance: Money{Cents: 500}}).Owes() {
		t.Fatalf("credit balance should not owe")
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{
		MemberID: 1,
		Amount:   Money{Cents: 2500},
		PaidAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Payment{
		{MemberID: 0, Amount: Money{Cents: 100}, PaidAt: good.PaidAt},
		{MemberID: 1, Amount: Money{Cents: 0}, PaidAt: good.PaidAt},
		{MemberID: 1, Amount: Money{Cents: 100}},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestApplicationValidate(t *testing.T) {
	good := Application{
		FullName:   "Marco Rossi",
		Email:      "marco@example.com",
		CategoryID: 2,
		JoinMonth:  time.September,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Application{
		{FullName: "", Email: "m@e.com", CategoryID: 2, JoinMonth: time.May},
		{FullName: "a", Email: "bad", CategoryID: 2, JoinMonth: time.May},
		{FullName: "a", Email: "m@e.com", CategoryID: 0, JoinMonth: time.May},
		{FullName: "a", Email: "m@e.com", CategoryID: 2, JoinMonth: 13},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
