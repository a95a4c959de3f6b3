package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"soci/internal/amqp"
	"soci/internal/core"
	"soci/internal/storage"
)

type capturingPublisher struct {
	messages []*amqp.ReminderMessage
	failErr  error
}

func (p *capturingPublisher) PublishReminder(_ context.Context, msg *amqp.ReminderMessage) error {
	if p.failErr != nil {
		return p.failErr
	}
	p.messages = append(p.messages, msg)
	return nil
}

// seedDebtor creates an active member owing money whose only payment is the
// given number of days before now. daysAgo < 0 means never paid.
func seedDebtor(t *testing.T, repo *storage.SQLiteRepository, now time.Time, owedCents int64, daysAgo int) int64 {
	t.Helper()
	ctx := context.Background()
	apps := NewApplicationService(repo)

	app, err := apps.Submit(ctx, core.Application{
		FullName:   "Debtor Member",
		Email:      "debtor@example.com",
		CategoryID: 1,
		JoinMonth:  time.March,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	m, err := apps.Approve(ctx, app.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if daysAgo >= 0 {
		// Pay down to the requested debt, dating the payment in the past
		payment := -m.Balance.Cents - owedCents
		if payment <= 0 {
			t.Fatalf("owedCents %d not below opening debt %d", owedCents, -m.Balance.Cents)
		}
		members := NewMemberService(repo, nil)
		paidAt := now.AddDate(0, 0, -daysAgo)
		if _, err := members.RecordPayment(ctx, m.ID, core.Money{Cents: payment}, paidAt); err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
	}
	return m.ID
}

func TestReminderProcessor_ProcessReminders(t *testing.T) {
	repo := newTestStorage(t)
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	overdueID := seedDebtor(t, repo, now, 9000, 45)

	pub := &capturingPublisher{}
	proc, err := NewReminderProcessor(repo, pub, ReminderProcessorConfig{
		Interval:       time.Hour,
		Frequency:      "weekly",
		MinDaysOverdue: 30,
	})
	if err != nil {
		t.Fatalf("NewReminderProcessor: %v", err)
	}

	sent, err := proc.processReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("processReminders: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}

	msg := pub.messages[0]
	if msg.MemberID != overdueID {
		t.Errorf("member_id = %d, want %d", msg.MemberID, overdueID)
	}
	if msg.BalanceCents != -9000 {
		t.Errorf("balance_cents = %d, want -9000", msg.BalanceCents)
	}
	if msg.DaysSincePayment == nil || *msg.DaysSincePayment != 45 {
		t.Errorf("days_since_payment = %v, want 45", msg.DaysSincePayment)
	}

	// The weekly schedule suppresses a second reminder the next day
	sent, err = proc.processReminders(context.Background(), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("processReminders: %v", err)
	}
	if sent != 0 {
		t.Errorf("next-day sent = %d, want 0", sent)
	}

	// A week later the member is due again
	sent, err = proc.processReminders(context.Background(), now.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("processReminders: %v", err)
	}
	if sent != 1 {
		t.Errorf("next-week sent = %d, want 1", sent)
	}
}

func TestReminderProcessor_SkipsRecentPayers(t *testing.T) {
	repo := newTestStorage(t)
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	seedDebtor(t, repo, now, 9000, 5)

	pub := &capturingPublisher{}
	proc, err := NewReminderProcessor(repo, pub, ReminderProcessorConfig{
		Interval:       time.Hour,
		Frequency:      "daily",
		MinDaysOverdue: 30,
	})
	if err != nil {
		t.Fatalf("NewReminderProcessor: %v", err)
	}

	sent, err := proc.processReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("processReminders: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0 for a member who paid 5 days ago", sent)
	}
}

func TestReminderProcessor_PublishFailureRetries(t *testing.T) {
	repo := newTestStorage(t)
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	seedDebtor(t, repo, now, 9000, 45)

	pub := &capturingPublisher{failErr: errors.New("broker down")}
	proc, err := NewReminderProcessor(repo, pub, ReminderProcessorConfig{
		Interval:       time.Hour,
		Frequency:      "weekly",
		MinDaysOverdue: 30,
	})
	if err != nil {
		t.Fatalf("NewReminderProcessor: %v", err)
	}

	sent, err := proc.processReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("processReminders: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0 when publishing fails", sent)
	}

	// A failed publish does not count as sent, so the next scan retries
	pub.failErr = nil
	sent, err = proc.processReminders(context.Background(), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("processReminders: %v", err)
	}
	if sent != 1 {
		t.Errorf("retry sent = %d, want 1", sent)
	}
}

func TestNewReminderProcessor_UnknownFrequency(t *testing.T) {
	_, err := NewReminderProcessor(nil, nil, ReminderProcessorConfig{Frequency: "hourly"})
	if err == nil {
		t.Error("expected error for unknown frequency")
	}
}
