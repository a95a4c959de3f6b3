package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"soci/internal/amqp"
	"soci/internal/core"
	"soci/internal/storage"
)

// ReminderPublisher publishes reminder messages. *amqp.Client satisfies it.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// ReminderProcessorConfig holds configuration for the reminder processor
type ReminderProcessorConfig struct {
	// Interval is how often to scan for overdue members (default: 1h)
	Interval time.Duration

	// Frequency paces reminders per member: daily, weekly or monthly (default: weekly)
	Frequency string

	// MinDaysOverdue skips members whose last payment is more recent than
	// this many days; members who never paid are skipped too, since their
	// overdue age is unknown (default: 30)
	MinDaysOverdue int
}

// DefaultReminderProcessorConfig returns sensible defaults
func DefaultReminderProcessorConfig() ReminderProcessorConfig {
	return ReminderProcessorConfig{
		Interval:       1 * time.Hour,
		Frequency:      "weekly",
		MinDaysOverdue: 30,
	}
}

// ReminderProcessor periodically scans for members with overdue balances and
// publishes one reminder message per due member. Pacing is per member, so a
// member reminded yesterday is not reminded again today on a weekly schedule.
type ReminderProcessor struct {
	storage   *storage.SQLiteRepository
	publisher ReminderPublisher
	scheduler ReminderScheduler
	config    ReminderProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// lastSent tracks the most recent reminder per member ID. It is only
	// touched from the processor goroutine and processReminders callers.
	lastSent map[int64]time.Time
}

// NewReminderProcessor creates a new reminder processor
func NewReminderProcessor(
	storage *storage.SQLiteRepository,
	publisher ReminderPublisher,
	config ReminderProcessorConfig,
) (*ReminderProcessor, error) {
	scheduler, err := GetReminderScheduler(config.Frequency)
	if err != nil {
		return nil, err
	}
	return &ReminderProcessor{
		storage:   storage,
		publisher: publisher,
		scheduler: scheduler,
		config:    config,
		lastSent:  make(map[int64]time.Time),
	}, nil
}

// Start begins the processing loop. Returns an error if already running.
func (p *ReminderProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reminder processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Reminder processor started",
		"interval", p.config.Interval,
		"frequency", p.config.Frequency,
		"min_days_overdue", p.config.MinDaysOverdue)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ReminderProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Reminder processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ReminderProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReminderProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Scan immediately on startup
	if _, err := p.processReminders(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Reminder scan failed", "error", err)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.processReminders(ctx, time.Now()); err != nil {
				slog.ErrorContext(ctx, "Reminder scan failed", "error", err)
			}
		}
	}
}

// processReminders publishes a reminder for every due overdue member and
// returns how many went out.
func (p *ReminderProcessor) processReminders(ctx context.Context, now time.Time) (int, error) {
	members, err := p.storage.ListMembers(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("list members: %w", err)
	}
	payments, err := p.storage.ListPayments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list payments: %w", err)
	}

	minDays := p.config.MinDaysOverdue
	report := core.BuildOutstandingReport(members, payments,
		core.OutstandingFilter{MinDaysOverdue: &minDays}, now)

	sent := 0
	for _, om := range report.Members {
		if !p.scheduler.IsDue(p.lastSent[om.Member.ID], now) {
			continue
		}

		msg := &amqp.ReminderMessage{
			MemberID:         om.Member.ID,
			MemberNumber:     om.Member.MemberNumber,
			FullName:         om.Member.FullName,
			BalanceCents:     om.Member.Balance.Cents,
			DaysSincePayment: om.DaysSincePayment,
			Timestamp:        now,
		}
		if err := p.publisher.PublishReminder(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reminder",
				"member_id", om.Member.ID, "error", err)
			continue
		}

		p.lastSent[om.Member.ID] = now
		sent++
	}

	if sent > 0 {
		slog.InfoContext(ctx, "Reminders published",
			"sent", sent,
			"overdue", len(report.Members),
			"total_owed_cents", report.Total.Cents)
	}

	return sent, nil
}
