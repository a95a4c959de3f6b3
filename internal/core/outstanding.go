// Outstanding-balance reporting.
//
// BuildOutstandingReport is a pure function over already-fetched members and
// payments: it never talks to storage and takes the reference time as an
// argument, so reports are deterministic under test.
package core

import (
	"sort"
	"strings"
	"time"
)

// Sort keys for the outstanding report.
const (
	SortByBalance OutstandingSort = "balance"
	SortByName    OutstandingSort = "name"
	SortByDays    OutstandingSort = "days"
)

type OutstandingSort string

// OutstandingFilter narrows and orders the report. Zero value means
// "everyone who owes, largest debt first".
type OutstandingFilter struct {
	// MinAmount keeps only members owing at least this much (absolute value).
	MinAmount Money
	// MinDaysOverdue, when set, keeps only members whose last payment is at
	// least this many days old. Members who never paid are excluded: their
	// overdue age is unknown.
	MinDaysOverdue *int
	SortBy         OutstandingSort
	// Descending toggles the sort direction. The default direction is
	// ascending except for balance, which defaults to largest debt first.
	Descending bool
	// Selected marks member IDs the caller has ticked for follow-up; their
	// owed total is reported separately.
	Selected map[int64]bool
}

// OutstandingMember is a derived row of the report, never persisted.
type OutstandingMember struct {
	Member
	LastPayment *time.Time
	// DaysSincePayment is nil when the member has never paid.
	DaysSincePayment *int
}

type OutstandingReport struct {
	Members []OutstandingMember
	// Total is the owed sum over the displayed rows.
	Total Money
	// SelectedTotal is the owed sum over displayed rows marked selected.
	SelectedTotal Money
}

// LastPaymentByMember reduces a payment list to each member's most recent
// payment date.
func LastPaymentByMember(payments []Payment) map[int64]time.Time {
	last := make(map[int64]time.Time)
	for _, p := range payments {
		if cur, ok := last[p.MemberID]; !ok || p.PaidAt.After(cur) {
			last[p.MemberID] = p.PaidAt
		}
	}
	return last
}

// BuildOutstandingReport selects active members with a negative balance,
// annotates them with payment recency, applies the filter and sort, and
// totals the owed amounts.
func BuildOutstandingReport(members []Member, payments []Payment, f OutstandingFilter, now time.Time) OutstandingReport {
	last := LastPaymentByMember(payments)

	rows := make([]OutstandingMember, 0)
	for _, m := range members {
		if !m.Active() || !m.Owes() {
			continue
		}
		row := OutstandingMember{Member: m}
		if paid, ok := last[m.ID]; ok {
			t := paid
			days := daysBetween(paid, now)
			row.LastPayment = &t
			row.DaysSincePayment = &days
		}
		if m.Balance.Abs().Cents < f.MinAmount.Cents {
			continue
		}
		if f.MinDaysOverdue != nil {
			if row.DaysSincePayment == nil || *row.DaysSincePayment < *f.MinDaysOverdue {
				continue
			}
		}
		rows = append(rows, row)
	}

	sortOutstanding(rows, f.SortBy, f.Descending)

	report := OutstandingReport{Members: rows}
	for _, r := range rows {
		owed := r.Balance.Abs().Cents
		report.Total.Cents += owed
		if f.Selected[r.ID] {
			report.SelectedTotal.Cents += owed
		}
	}
	return report
}

// daysBetween returns whole 24-hour periods elapsed from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

// sortOutstanding orders rows stably so equal keys keep their input order.
// Members who never paid sort as "infinitely overdue": last in ascending
// day order, first in descending.
func sortOutstanding(rows []OutstandingMember, by OutstandingSort, desc bool) {
	var less func(a, b OutstandingMember) bool
	switch by {
	case SortByName:
		less = func(a, b OutstandingMember) bool {
			return strings.ToLower(a.FullName) < strings.ToLower(b.FullName)
		}
	case SortByDays:
		less = func(a, b OutstandingMember) bool {
			switch {
			case a.DaysSincePayment == nil && b.DaysSincePayment == nil:
				return false
			case a.DaysSincePayment == nil:
				return false // nil sorts last ascending
			case b.DaysSincePayment == nil:
				return true
			default:
				return *a.DaysSincePayment < *b.DaysSincePayment
			}
		}
	default: // SortByBalance: largest debt first by default
		less = func(a, b OutstandingMember) bool {
			return a.Balance.Abs().Cents > b.Balance.Abs().Cents
		}
	}
	if desc {
		inner := less
		less = func(a, b OutstandingMember) bool { return inner(b, a) }
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}
