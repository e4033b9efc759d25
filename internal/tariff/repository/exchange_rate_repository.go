package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// ExchangeRateRepository reads and records currency exchange rates.
type ExchangeRateRepository struct {
	db *gorm.DB
}

// NewExchangeRateRepository creates a new ExchangeRateRepository.
func NewExchangeRateRepository(db *gorm.DB) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

// FindExchangeRate returns the from->to rate dated on or before asOf, or the
// latest rate when asOf is nil. An invalid NullDecimal means no rate exists.
func (r *ExchangeRateRepository) FindExchangeRate(ctx context.Context, from, to string, asOf *time.Time) (decimal.NullDecimal, error) {
	query := r.db.WithContext(ctx).Where("from_currency = ? AND to_currency = ?", from, to)
	if asOf != nil {
		query = query.Where("rate_date <= ?", asOf.Format(model.DateLayout))
	}

	var rates []model.ExchangeRate
	if err := query.Order("rate_date DESC").Limit(1).Find(&rates).Error; err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("failed to retrieve %s/%s exchange rate: %w", from, to, err)
	}
	if len(rates) == 0 {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(rates[0].Rate), nil
}

// Save records a rate, replacing any rate of the same pair and date.
func (r *ExchangeRateRepository) Save(ctx context.Context, rate *model.ExchangeRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("from_currency = ? AND to_currency = ? AND rate_date = ?", rate.FromCurrency, rate.ToCurrency, rate.RateDate.Format(model.DateLayout)).
			Delete(&model.ExchangeRate{}).Error; err != nil {
			return fmt.Errorf("failed to replace %s/%s exchange rate: %w", rate.FromCurrency, rate.ToCurrency, err)
		}
		if err := tx.Create(rate).Error; err != nil {
			return fmt.Errorf("failed to save %s/%s exchange rate: %w", rate.FromCurrency, rate.ToCurrency, err)
		}
		return nil
	})
}
