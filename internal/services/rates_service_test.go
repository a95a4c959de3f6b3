package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"soci/internal/core"
)

func TestRatesService_RateTable(t *testing.T) {
	svc := NewRatesService(newTestStorage(t))
	ctx := context.Background()

	rows, err := svc.RateTable(ctx, 1)
	if err != nil {
		t.Fatalf("RateTable: %v", err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	if rows[0].Month != time.March || rows[11].Month != time.February {
		t.Errorf("rows should run March..February, got %v..%v", rows[0].Month, rows[11].Month)
	}
	// No overrides stored yet, all rows are defaults
	for _, row := range rows {
		if row.Modified {
			t.Errorf("%v should not be modified", row.Month)
		}
		if row.Amount != row.Default {
			t.Errorf("%v amount = %d, want default %d", row.Month, row.Amount.Cents, row.Default.Cents)
		}
	}
}

func TestRatesService_UpdateRateTable(t *testing.T) {
	svc := NewRatesService(newTestStorage(t))
	ctx := context.Background()

	rates := core.DefaultProRataRates(core.Money{Cents: 12000})
	rates[time.June] = core.Money{Cents: 8500}

	if err := svc.UpdateRateTable(ctx, 1, rates); err != nil {
		t.Fatalf("UpdateRateTable: %v", err)
	}

	rows, err := svc.RateTable(ctx, 1)
	if err != nil {
		t.Fatalf("RateTable: %v", err)
	}
	for _, row := range rows {
		if row.Month == time.June {
			if row.Amount.Cents != 8500 || !row.Modified {
				t.Errorf("June row = %+v, want 8500 modified", row)
			}
		} else if row.Modified {
			// Stored but equal to the default: not modified
			t.Errorf("%v should not count as modified", row.Month)
		}
	}
}

func TestRatesService_UpdateRateTable_Invalid(t *testing.T) {
	svc := NewRatesService(newTestStorage(t))
	ctx := context.Background()

	rates := core.DefaultProRataRates(core.Money{Cents: 12000})
	delete(rates, time.July)
	rates[time.April] = core.Money{Cents: -1}

	err := svc.UpdateRateTable(ctx, 1, rates)
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *core.ValidationError", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("problems = %v, want 2 entries", verr.Problems)
	}

	// Nothing persisted after a failed update
	rows, err := svc.RateTable(ctx, 1)
	if err != nil {
		t.Fatalf("RateTable: %v", err)
	}
	for _, row := range rows {
		if row.Modified {
			t.Errorf("%v should be untouched after failed update", row.Month)
		}
	}
}

func TestRatesService_UnknownCategory(t *testing.T) {
	svc := NewRatesService(newTestStorage(t))
	ctx := context.Background()

	if _, err := svc.RateTable(ctx, 999); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("RateTable error = %v, want ErrInvalidCategory", err)
	}
	rates := core.DefaultProRataRates(core.Money{Cents: 12000})
	if err := svc.UpdateRateTable(ctx, 999, rates); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("UpdateRateTable error = %v, want ErrInvalidCategory", err)
	}
}
