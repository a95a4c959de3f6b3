// Pro-rata fee calculation for mid-year joins.
//
// The membership year runs March through February. A member joining part-way
// through the year pays a reduced annual fee proportional to the months left,
// rounded half-up to the cent. Operators can override individual months per
// category; the joining fee is a one-off and is never prorated.
package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MembershipYearStart is the first month of the membership year.
const MembershipYearStart = time.March

// MonthsRemaining returns how many months of the membership year remain for a
// member joining in the given month, inclusive of the join month:
// March -> 12, April -> 11, ..., January -> 2, February -> 1.
func MonthsRemaining(m time.Month) int {
	if m < time.January || m > time.December {
		return 0
	}
	remaining := 12 - (int(m) - int(MembershipYearStart))
	if remaining > 12 {
		remaining -= 12
	}
	return remaining
}

// DefaultProRataRate calculates the default fee for a join month as
// annualFee * monthsRemaining / 12, rounded half-up to the cent.
func DefaultProRataRate(annualFee Money, m time.Month) Money {
	months := int64(MonthsRemaining(m))
	if months == 0 || annualFee.Cents <= 0 {
		return Money{}
	}
	return Money{Cents: (annualFee.Cents*months + 6) / 12}
}

// DefaultProRataRates returns the complete default rate table for an annual
// fee, one entry per calendar month. Recomputing the table from the same fee
// always yields the same result.
func DefaultProRataRates(annualFee Money) map[time.Month]Money {
	rates := make(map[time.Month]Money, 12)
	for m := time.January; m <= time.December; m++ {
		rates[m] = DefaultProRataRate(annualFee, m)
	}
	return rates
}

// RateFor resolves the pro-rata rate for a join month: the operator override
// when one exists, the calculated default otherwise.
func (c MembershipCategory) RateFor(m time.Month) Money {
	if r, ok := c.Overrides[m]; ok {
		return r
	}
	return DefaultProRataRate(c.AnnualFee, m)
}

// RateModified reports whether the month's rate was changed by an operator.
// An override numerically equal to the default does not count as modified.
func (c MembershipCategory) RateModified(m time.Month) bool {
	r, ok := c.Overrides[m]
	if !ok {
		return false
	}
	return r.Cents != DefaultProRataRate(c.AnnualFee, m).Cents
}

// JoinTotal is the amount due at joining time: the month's pro-rata rate plus
// the category's joining fee. The joining fee applies even when the rate
// table says the month itself is free.
func (c MembershipCategory) JoinTotal(m time.Month) Money {
	return c.RateFor(m).Add(c.JoiningFee)
}

// RateRow is one resolved line of a category's rate table.
type RateRow struct {
	Month    time.Month
	Amount   Money
	Default  Money
	Modified bool
}

// ResolvedRateTable returns the category's twelve resolved rates in
// membership-year order (March first, February last).
func (c MembershipCategory) ResolvedRateTable() []RateRow {
	rows := make([]RateRow, 0, 12)
	for i := 0; i < 12; i++ {
		m := time.Month((int(MembershipYearStart)-1+i)%12 + 1)
		rows = append(rows, RateRow{
			Month:    m,
			Amount:   c.RateFor(m),
			Default:  DefaultProRataRate(c.AnnualFee, m),
			Modified: c.RateModified(m),
		})
	}
	return rows
}

// ValidationError collects every problem found in a submitted rate table so
// callers can surface them all at once instead of one per round trip.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid rate table: " + strings.Join(e.Problems, "; ")
}

// ValidateRateTable checks a submitted rate table: all twelve months must be
// present and no rate may be negative. Returns a *ValidationError listing
// every problem, or nil when the table is acceptable.
func ValidateRateTable(rates map[time.Month]Money) error {
	var problems []string
	for m := time.January; m <= time.December; m++ {
		r, ok := rates[m]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing rate for %s", m))
			continue
		}
		if r.Cents < 0 {
			problems = append(problems, fmt.Sprintf("negative rate for %s", m))
		}
	}
	var unknown []int
	for m := range rates {
		if m < time.January || m > time.December {
			unknown = append(unknown, int(m))
		}
	}
	sort.Ints(unknown)
	for _, m := range unknown {
		problems = append(problems, fmt.Sprintf("unknown month %d", m))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
