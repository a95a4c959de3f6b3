package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"soci/internal/core"
	"soci/internal/storage"
)

// RatesService reads and replaces per-category pro-rata rate tables.
type RatesService struct {
	storage *storage.SQLiteRepository
}

func NewRatesService(storage *storage.SQLiteRepository) *RatesService {
	return &RatesService{storage: storage}
}

func (s *RatesService) Categories(ctx context.Context) ([]core.MembershipCategory, error) {
	return s.storage.ListCategories(ctx)
}

func (s *RatesService) Category(ctx context.Context, id int64) (*core.MembershipCategory, error) {
	return s.storage.GetCategory(ctx, id)
}

// RateTable resolves the category's full twelve-month table, overrides
// applied, in membership-year order.
func (s *RatesService) RateTable(ctx context.Context, categoryID int64) ([]core.RateRow, error) {
	cat, err := s.storage.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return cat.ResolvedRateTable(), nil
}

// UpdateRateTable validates and persists a complete replacement table.
// Validation failures come back as *core.ValidationError listing every
// problem at once.
func (s *RatesService) UpdateRateTable(ctx context.Context, categoryID int64, rates map[time.Month]core.Money) error {
	if _, err := s.storage.GetCategory(ctx, categoryID); err != nil {
		return err
	}
	if err := core.ValidateRateTable(rates); err != nil {
		return err
	}
	if err := s.storage.ReplaceProRataRates(ctx, categoryID, rates); err != nil {
		return fmt.Errorf("replace rates: %w", err)
	}

	slog.InfoContext(ctx, "Rate table updated", "category_id", categoryID)
	return nil
}
