package worker

import (
	"context"
	"fmt"
	"log/slog"

	"soci/internal/amqp"
	"soci/internal/sheets"
	"soci/internal/storage"
)

// SyncWorker exports recorded payments from SQLite to the ledger spreadsheet.
// The fast path is AMQP-driven; ProcessPendingPayments covers messages lost
// while the worker was down.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	ledger    sheets.LedgerWriter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, ledger sheets.LedgerWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single payment sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.PaymentSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"attempt", msg.Attempt)

	// Claim the payment; the poller or another worker may have exported it
	claimed, err := w.storage.MarkPaymentProcessing(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("claim payment %d: %w", msg.ID, err)
	}
	if !claimed {
		slog.InfoContext(ctx, "Payment already claimed, skipping", "id", msg.ID)
		return nil
	}

	if err := w.exportPayment(ctx, msg.ID); err != nil {
		// Export failure is handled through the sync queue, not the broker:
		// the payment returns to 'pending' (or parks as 'error') and the
		// poller retries. Requeueing the delivery would double the retries.
		slog.ErrorContext(ctx, "Failed to export payment",
			"id", msg.ID, "error", err)
		return nil
	}

	return nil
}

// ProcessPendingPayments exports any payments that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingPayments(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncPayments(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending payments: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending payments", "count", len(pending))

	for _, item := range pending {
		claimed, err := w.storage.MarkPaymentProcessing(ctx, item.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to claim payment", "id", item.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		if err := w.exportPayment(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export payment", "id", item.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck verifies and exports any pending payments at worker startup.
// This is useful to recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// Requeue anything a crashed worker left half-claimed
	if _, err := w.storage.ResetStaleProcessing(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing payments", "error", err)
	}

	// Get a larger batch for startup check
	pending, err := w.storage.GetPendingSyncPayments(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending payments for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending payments found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending payments on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, item := range pending {
		claimed, err := w.storage.MarkPaymentProcessing(ctx, item.ID)
		if err != nil || !claimed {
			continue
		}
		if err := w.exportPayment(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export payment during startup",
				"id", item.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// exportPayment appends the payment to the ledger and records the outcome in
// the sync queue.
func (w *SyncWorker) exportPayment(ctx context.Context, id int64) error {
	detail, err := w.storage.GetPaymentDetail(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkPaymentSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("get payment detail: %w", err)
	}

	ref, err := w.ledger.Append(ctx, sheets.LedgerEntry{
		PaidAt:        detail.Payment.PaidAt,
		MemberNumber:  detail.MemberNumber,
		FullName:      detail.FullName,
		Amount:        detail.Payment.Amount,
		ReceiptNumber: detail.Payment.ReceiptNumber,
	})
	if err != nil {
		if markErr := w.storage.MarkPaymentSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkPaymentSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
		// Don't return error here - the ledger row is written
	}

	slog.InfoContext(ctx, "Successfully exported payment",
		"id", id,
		"ledger_ref", ref,
		"receipt_number", detail.Payment.ReceiptNumber,
		"amount_cents", detail.Payment.Amount.Cents)

	return nil
}
