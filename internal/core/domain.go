package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusActive   MemberStatus = "active"
	StatusInactive MemberStatus = "inactive"
)

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type (
	MemberStatus      string
	ApplicationStatus string

	Money struct {
		Cents int64
	}

	Member struct {
		ID           int64
		MemberNumber string
		FullName     string
		Email        string
		Status       MemberStatus
		// Balance is signed: a negative balance means the member owes money.
		Balance    Money
		CategoryID int64
		JoinedAt   time.Time
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	MembershipCategory struct {
		ID         int64
		Name       string
		AnnualFee  Money
		JoiningFee Money
		// Overrides holds operator-entered pro-rata rates keyed by join month.
		// Months without an override fall back to the calculated default.
		Overrides map[time.Month]Money
	}

	Payment struct {
		ID            int64
		MemberID      int64
		Amount        Money
		PaidAt        time.Time
		ReceiptNumber string
	}

	Application struct {
		ID         int64
		FullName   string
		Email      string
		CategoryID int64
		JoinMonth  time.Month
		QuotedFee  Money
		Status     ApplicationStatus
		Notes      string
		// MemberID is set once the application is approved.
		MemberID  int64
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyFullName   = errors.New("empty full name")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidCategory = errors.New("invalid category")
	ErrMemberNotFound  = errors.New("member not found")
)

func (s MemberStatus) Validate() error {
	switch s {
	case StatusActive, StatusInactive:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// Active reports whether the member currently counts as active.
func (m Member) Active() bool {
	return m.Status == StatusActive
}

// Owes reports whether the member has an outstanding (negative) balance.
func (m Member) Owes() bool {
	return m.Balance.Cents < 0
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Abs returns the absolute amount, used when presenting owed balances.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Member) Validate() error {
	if len(strings.TrimSpace(m.FullName)) == 0 {
		return ErrEmptyFullName
	}
	if len(m.FullName) > 200 {
		return errors.New("full name too long (max 200 characters)")
	}
	if !validEmail(m.Email) {
		return ErrInvalidEmail
	}
	if err := m.Status.Validate(); err != nil {
		return err
	}
	if m.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	return nil
}

func (p Payment) Validate() error {
	if p.MemberID <= 0 {
		return errors.New("payment requires a member")
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.PaidAt.IsZero() {
		return errors.New("payment date cannot be zero")
	}
	return nil
}

func (a Application) Validate() error {
	if len(strings.TrimSpace(a.FullName)) == 0 {
		return ErrEmptyFullName
	}
	if !validEmail(a.Email) {
		return ErrInvalidEmail
	}
	if a.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if a.JoinMonth < time.January || a.JoinMonth > time.December {
		return ErrInvalidMonth
	}
	if len(a.Notes) > 500 {
		return errors.New("notes too long (max 500 characters)")
	}
	return nil
}

// validEmail is a deliberately loose check: one "@" with text either side.
// Deliverability is the mail system's problem, not the data model's.
func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.Contains(s[at+1:], "@")
}
