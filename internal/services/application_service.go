package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"soci/internal/core"
	"soci/internal/storage"
)

// ErrApplicationNotPending is returned when approving or re-approving an
// application that was already decided.
var ErrApplicationNotPending = errors.New("application is not pending")

// ApplicationService handles the membership application flow: submit with a
// quoted pro-rata fee, then approve into a member or reject.
type ApplicationService struct {
	storage *storage.SQLiteRepository
}

func NewApplicationService(storage *storage.SQLiteRepository) *ApplicationService {
	return &ApplicationService{storage: storage}
}

// Submit records a new application. The quoted fee is frozen at submission
// time: the join month's pro-rata rate plus the category's joining fee.
func (s *ApplicationService) Submit(ctx context.Context, a core.Application) (*core.Application, error) {
	a.Status = core.ApplicationPending
	a.MemberID = 0
	if err := a.Validate(); err != nil {
		return nil, err
	}

	cat, err := s.storage.GetCategory(ctx, a.CategoryID)
	if err != nil {
		return nil, err
	}
	a.QuotedFee = cat.JoinTotal(a.JoinMonth)

	id, err := s.storage.CreateApplication(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("save application: %w", err)
	}
	a.ID = id

	slog.InfoContext(ctx, "Application submitted",
		"application_id", id,
		"category_id", a.CategoryID,
		"join_month", int(a.JoinMonth),
		"quoted_fee_cents", a.QuotedFee.Cents)

	return &a, nil
}

func (s *ApplicationService) Get(ctx context.Context, id int64) (*core.Application, error) {
	return s.storage.GetApplication(ctx, id)
}

func (s *ApplicationService) List(ctx context.Context, status core.ApplicationStatus) ([]core.Application, error) {
	if status != "" {
		if err := statusFilterValid(status); err != nil {
			return nil, err
		}
	}
	return s.storage.ListApplications(ctx, status)
}

func statusFilterValid(status core.ApplicationStatus) error {
	switch status {
	case core.ApplicationPending, core.ApplicationApproved, core.ApplicationRejected:
		return nil
	default:
		return fmt.Errorf("unknown application status %q: %w", status, core.ErrInvalidStatus)
	}
}

// Approve turns a pending application into an active member. The member
// starts owing the quoted fee, so the opening balance is its negation;
// recording the joining payment later clears it.
func (s *ApplicationService) Approve(ctx context.Context, id int64) (*core.Member, error) {
	app, err := s.storage.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != core.ApplicationPending {
		return nil, fmt.Errorf("application %d is %s: %w", id, app.Status, ErrApplicationNotPending)
	}

	m := core.Member{
		MemberNumber: NewMemberNumber(),
		FullName:     app.FullName,
		Email:        app.Email,
		Status:       core.StatusActive,
		Balance:      core.Money{Cents: -app.QuotedFee.Cents},
		CategoryID:   app.CategoryID,
		JoinedAt:     time.Now(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	memberID, err := s.storage.ApproveApplication(ctx, id, m)
	if err != nil {
		return nil, err
	}
	return s.storage.GetMember(ctx, memberID)
}

// Reject closes a pending application with an optional operator note.
func (s *ApplicationService) Reject(ctx context.Context, id int64, notes string) error {
	if err := s.storage.RejectApplication(ctx, id, notes); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Application rejected", "application_id", id)
	return nil
}
