package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"soci/internal/sheets"
	"soci/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending payments (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of payments to export per poll cycle (default: 10)
	BatchSize int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
	}
}

// SyncProcessor polls the payments table for rows not yet exported to the
// ledger and pushes them out. It is the safety net behind the AMQP path: a
// lost broker message only delays an export until the next poll.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	ledger  sheets.LedgerWriter
	config  SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(
	storage *storage.SQLiteRepository,
	ledger sheets.LedgerWriter,
	config SyncProcessorConfig,
) *SyncProcessor {
	return &SyncProcessor{
		storage: storage,
		ledger:  ledger,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Requeue payments stuck in 'processing' from previous crashes
	if _, err := p.storage.ResetStaleProcessing(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing payments", "error", err)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Signal stop
	close(p.stopCh)

	// Wait for completion or context cancellation
	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch exports a single batch of pending payments
func (p *SyncProcessor) processBatch(ctx context.Context) {
	pending, err := p.storage.GetPendingSyncPayments(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get pending payments", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(pending))

	for _, item := range pending {
		// Check if we should stop
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		// Claim the payment; another worker may have gotten there first
		claimed, err := p.storage.MarkPaymentProcessing(ctx, item.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to claim payment",
				"id", item.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		if err := p.exportPayment(ctx, item.ID); err != nil {
			slog.WarnContext(ctx, "Payment export failed",
				"id", item.ID,
				"attempt", item.Attempts+1,
				"error", err)
			if markErr := p.storage.MarkPaymentSyncError(ctx, item.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark payment sync error",
					"id", item.ID, "error", markErr)
			}
		}
	}
}

// exportPayment appends one payment to the ledger and marks it synced
func (p *SyncProcessor) exportPayment(ctx context.Context, id int64) error {
	detail, err := p.storage.GetPaymentDetail(ctx, id)
	if err != nil {
		return fmt.Errorf("get payment %d: %w", id, err)
	}

	ref, err := p.ledger.Append(ctx, sheets.LedgerEntry{
		PaidAt:        detail.Payment.PaidAt,
		MemberNumber:  detail.MemberNumber,
		FullName:      detail.FullName,
		Amount:        detail.Payment.Amount,
		ReceiptNumber: detail.Payment.ReceiptNumber,
	})
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := p.storage.MarkPaymentSynced(ctx, id); err != nil {
		slog.WarnContext(ctx, "Failed to mark payment as synced",
			"id", id, "error", err)
		// Don't fail the export - the ledger row is written
	}

	slog.InfoContext(ctx, "Payment exported to ledger",
		"id", id,
		"ledger_ref", ref)

	return nil
}
