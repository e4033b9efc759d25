package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// AgreementRepository reads trade agreements and their memberships.
type AgreementRepository struct {
	db *gorm.DB
}

// NewAgreementRepository creates a new AgreementRepository.
func NewAgreementRepository(db *gorm.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// FindAgreementsBetween returns the agreements both countries are members of.
// Only the memberships of the two countries are loaded.
func (r *AgreementRepository) FindAgreementsBetween(ctx context.Context, originCountry, destinationCountry string) ([]model.TradeAgreement, error) {
	db := r.db.WithContext(ctx)
	originMembers := db.Model(&model.AgreementMember{}).Select("agreement_code").Where("country_code = ?", originCountry)
	destinationMembers := db.Model(&model.AgreementMember{}).Select("agreement_code").Where("country_code = ?", destinationCountry)

	var agreements []model.TradeAgreement
	if err := db.
		Preload("Members", "country_code IN ?", []string{originCountry, destinationCountry}).
		Where("code IN (?)", originMembers).
		Where("code IN (?)", destinationMembers).
		Order("code ASC").
		Find(&agreements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve agreements between %s and %s: %w", originCountry, destinationCountry, err)
	}
	return agreements, nil
}

// List returns every agreement with all of its members.
func (r *AgreementRepository) List(ctx context.Context) ([]model.TradeAgreement, error) {
	var agreements []model.TradeAgreement
	if err := r.db.WithContext(ctx).Preload("Members").Order("code ASC").Find(&agreements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve agreements: %w", err)
	}
	return agreements, nil
}
