package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"soci/internal/amqp"
	"soci/internal/core"
	"soci/internal/storage"
)

// MemberService orchestrates member and payment operations across SQLite and AMQP
type MemberService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewMemberService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *MemberService {
	return &MemberService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// NewMemberNumber returns a fresh member number, e.g. "SOC-3F2A91C4".
func NewMemberNumber() string {
	return "SOC-" + strings.ToUpper(uuid.NewString()[:8])
}

// NewReceiptNumber returns a fresh receipt number, e.g. "RCP-9B41E7D0".
func NewReceiptNumber() string {
	return "RCP-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateMember registers a member directly, skipping the application flow.
// The member number is generated here; callers cannot choose one.
func (s *MemberService) CreateMember(ctx context.Context, m core.Member) (*core.Member, error) {
	m.MemberNumber = NewMemberNumber()
	if m.Status == "" {
		m.Status = core.StatusActive
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetCategory(ctx, m.CategoryID); err != nil {
		return nil, err
	}

	id, err := s.storage.CreateMember(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("save member: %w", err)
	}
	m.ID = id
	return &m, nil
}

func (s *MemberService) GetMember(ctx context.Context, id int64) (*core.Member, error) {
	return s.storage.GetMember(ctx, id)
}

func (s *MemberService) ListMembers(ctx context.Context, includeInactive bool) ([]core.Member, error) {
	return s.storage.ListMembers(ctx, includeInactive)
}

func (s *MemberService) UpdateMember(ctx context.Context, m core.Member) (*core.Member, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetCategory(ctx, m.CategoryID); err != nil {
		return nil, err
	}
	if err := s.storage.UpdateMember(ctx, m); err != nil {
		return nil, err
	}
	return s.storage.GetMember(ctx, m.ID)
}

// DeactivateMember soft deletes a member; payment history survives.
func (s *MemberService) DeactivateMember(ctx context.Context, id int64) error {
	return s.storage.SoftDeleteMember(ctx, id)
}

// RecordPayment saves a payment locally and publishes a sync message so the
// worker exports it to the ledger. Payment amounts are always positive;
// crediting the balance happens in storage.
func (s *MemberService) RecordPayment(ctx context.Context, memberID int64, amount core.Money, paidAt time.Time) (*core.Payment, error) {
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	p := core.Payment{
		MemberID:      memberID,
		Amount:        amount,
		PaidAt:        paidAt,
		ReceiptNumber: NewReceiptNumber(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// Save to SQLite first (fast, reliable)
	id, err := s.storage.RecordPayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	p.ID = id

	// Publish async sync message (non-blocking)
	if err := s.publishSyncMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request - payment is saved locally and the
		// pending-sync poller will pick it up
	}

	return &p, nil
}

func (s *MemberService) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return s.storage.ListPayments(ctx)
}

func (s *MemberService) ListPaymentsByMember(ctx context.Context, memberID int64) ([]core.Payment, error) {
	if _, err := s.storage.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return s.storage.ListPaymentsByMember(ctx, memberID)
}

// Outstanding builds the balance report over active members as of now.
func (s *MemberService) Outstanding(ctx context.Context, filter core.OutstandingFilter, now time.Time) (core.OutstandingReport, error) {
	members, err := s.storage.ListMembers(ctx, false)
	if err != nil {
		return core.OutstandingReport{}, fmt.Errorf("list members: %w", err)
	}
	payments, err := s.storage.ListPayments(ctx)
	if err != nil {
		return core.OutstandingReport{}, fmt.Errorf("list payments: %w", err)
	}
	return core.BuildOutstandingReport(members, payments, filter, now), nil
}

// Overview aggregates headcounts and owed totals for the dashboard.
func (s *MemberService) Overview(ctx context.Context) (core.Overview, error) {
	return s.storage.Overview(ctx)
}

func (s *MemberService) publishSyncMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishPaymentSync(ctx, id, 0)
}

// Close closes both storage and AMQP connections
func (s *MemberService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close member service: %v", errs)
	}

	return nil
}
