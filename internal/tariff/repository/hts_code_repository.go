package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/model"
	"github.com/OpenNSW/tariff/utils"
)

// HTSCodeRepository reads the tariff schedule's product codes.
type HTSCodeRepository struct {
	db *gorm.DB
}

// NewHTSCodeRepository creates a new HTSCodeRepository.
func NewHTSCodeRepository(db *gorm.DB) *HTSCodeRepository {
	return &HTSCodeRepository{db: db}
}

// FindProduct returns the HTS code record, or engine.ErrNotFound.
func (r *HTSCodeRepository) FindProduct(ctx context.Context, code model.ProductCode) (*model.HTSCode, error) {
	var htsCode model.HTSCode
	if err := r.db.WithContext(ctx).Where("hts_code = ?", code.String()).First(&htsCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve HTS code %s: %w", code, err)
	}
	return &htsCode, nil
}

// List retrieves HTS codes ordered by code, optionally filtered by prefix.
func (r *HTSCodeRepository) List(ctx context.Context, filter model.HTSCodeFilter) (*model.HTSCodeListResult, error) {
	query := r.db.WithContext(ctx).Model(&model.HTSCode{})
	if filter.HTSCodeStartsWith != nil && *filter.HTSCodeStartsWith != "" {
		query = query.Where("hts_code LIKE ?", *filter.HTSCodeStartsWith+"%")
	}

	query = query.Session(&gorm.Session{})

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count HTS codes: %w", err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	var htsCodes []model.HTSCode
	if err := query.Order("hts_code ASC").Offset(offset).Limit(limit).Find(&htsCodes).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve HTS codes: %w", err)
	}

	return &model.HTSCodeListResult{
		TotalCount: totalCount,
		HTSCodes:   htsCodes,
		Offset:     offset,
		Limit:      limit,
	}, nil
}
