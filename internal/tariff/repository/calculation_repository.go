package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/model"
	"github.com/OpenNSW/tariff/utils"
)

// CalculationRepository stores the history of successful calculations.
type CalculationRepository struct {
	db *gorm.DB
}

// NewCalculationRepository creates a new CalculationRepository.
func NewCalculationRepository(db *gorm.DB) *CalculationRepository {
	return &CalculationRepository{db: db}
}

// Create inserts a calculation record. The record ID is assigned by the BaseModel hook.
func (r *CalculationRepository) Create(ctx context.Context, record *model.CalculationRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save calculation record: %w", err)
	}
	return nil
}

// SetReportKey links an archived report to a stored calculation.
func (r *CalculationRepository) SetReportKey(ctx context.Context, id uuid.UUID, key string) error {
	result := r.db.WithContext(ctx).Model(&model.CalculationRecord{}).Where("id = ?", id).Update("report_key", key)
	if result.Error != nil {
		return fmt.Errorf("failed to update report key of calculation %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return engine.ErrNotFound
	}
	return nil
}

// GetByID returns a calculation record, or engine.ErrNotFound.
func (r *CalculationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CalculationRecord, error) {
	var record model.CalculationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve calculation %s: %w", id, err)
	}
	return &record, nil
}

// ListByRequester returns a caller's calculations, newest first.
func (r *CalculationRepository) ListByRequester(ctx context.Context, filter model.CalculationRecordFilter) (*model.CalculationRecordListResult, error) {
	query := r.db.WithContext(ctx).Model(&model.CalculationRecord{}).Where("requested_by = ?", filter.RequestedBy)

	query = query.Session(&gorm.Session{})

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count calculations of %s: %w", filter.RequestedBy, err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	var records []model.CalculationRecord
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve calculations of %s: %w", filter.RequestedBy, err)
	}

	return &model.CalculationRecordListResult{
		TotalCount: totalCount,
		Items:      records,
		Offset:     offset,
		Limit:      limit,
	}, nil
}
