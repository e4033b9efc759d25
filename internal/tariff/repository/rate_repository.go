package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// RateRepository reads MFN and preferential tariff rates.
type RateRepository struct {
	db *gorm.DB
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

// FindDefaultRates returns the dated MFN rates of a product, oldest first.
// Rows without an effective date are never in force and are left out.
func (r *RateRepository) FindDefaultRates(ctx context.Context, code model.ProductCode) ([]model.RateSpec, error) {
	var rates []model.TariffRate
	if err := r.db.WithContext(ctx).
		Where("hts_code = ? AND rate_type = ? AND effective_date IS NOT NULL", code.String(), model.RateTypeMFN).
		Order("effective_date ASC").
		Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve MFN rates for %s: %w", code, err)
	}

	specs := make([]model.RateSpec, 0, len(rates))
	for i := range rates {
		specs = append(specs, rates[i].Spec())
	}
	return specs, nil
}

// FindPreferentialRates returns the preferential rates of a product that apply
// to the destination country or to every destination, in insertion order.
func (r *RateRepository) FindPreferentialRates(ctx context.Context, code model.ProductCode, destinationCountry string) ([]model.PreferentialRate, error) {
	var rates []model.TariffRate
	if err := r.db.WithContext(ctx).
		Preload("Agreement").
		Where("hts_code = ? AND rate_type = ?", code.String(), model.RateTypePreferential).
		Where("destination_country = ? OR destination_country IS NULL", destinationCountry).
		Order("created_at ASC").
		Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve preferential rates for %s: %w", code, err)
	}

	preferential := make([]model.PreferentialRate, 0, len(rates))
	for i := range rates {
		preferential = append(preferential, rates[i].Preferential())
	}
	return preferential, nil
}
