package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/reports"
	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// ErrReportNotArchived is returned when a stored calculation has no report.
var ErrReportNotArchived = errors.New("calculation has no archived report")

// CalculationStore persists the history of successful calculations.
type CalculationStore interface {
	Create(ctx context.Context, record *model.CalculationRecord) error
	SetReportKey(ctx context.Context, id uuid.UUID, key string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CalculationRecord, error)
	ListByRequester(ctx context.Context, filter model.CalculationRecordFilter) (*model.CalculationRecordListResult, error)
}

// ReportArchiver stores calculation results as documents.
type ReportArchiver interface {
	Archive(ctx context.Context, calculationID uuid.UUID, requestedBy string, result *model.CalculationResult) (*reports.ReportMetadata, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Options controls what happens to a result after it is calculated.
type Options struct {
	PersistCalculations bool
	ArchiveReports      bool
}

// CalculationService runs tariff calculations and keeps their history.
// Storing the history never changes the result returned to the caller.
type CalculationService struct {
	calculator *engine.Calculator
	records    CalculationStore
	archiver   ReportArchiver
	opts       Options
}

// NewCalculationService creates a CalculationService. records and archiver may be
// nil, which disables persistence and archiving respectively.
func NewCalculationService(calculator *engine.Calculator, records CalculationStore, archiver ReportArchiver, opts Options) *CalculationService {
	if records == nil {
		opts.PersistCalculations = false
	}
	if archiver == nil || !opts.PersistCalculations {
		opts.ArchiveReports = false
	}
	return &CalculationService{
		calculator: calculator,
		records:    records,
		archiver:   archiver,
		opts:       opts,
	}
}

// Calculate evaluates a single-date calculation on behalf of requestedBy (may be empty).
func (s *CalculationService) Calculate(ctx context.Context, in model.CalculationInput, requestedBy string) *model.CalculationResponseDTO {
	result := s.calculator.CalculateTariff(ctx, in)
	return s.record(ctx, result, requestedBy)
}

// CalculateWithDateRange evaluates rates valid at any point of [start, end].
func (s *CalculationService) CalculateWithDateRange(ctx context.Context, in model.CalculationInput, start, end time.Time, requestedBy string) *model.CalculationResponseDTO {
	result := s.calculator.CalculateTariffWithDateRange(ctx, in, start, end)
	return s.record(ctx, result, requestedBy)
}

// ComputeDuty computes the duty of a standalone rate.
func (s *CalculationService) ComputeDuty(req model.ComputeDutyDTO) (*model.ComputeDutyResponseDTO, error) {
	if err := engine.ValidateAmounts(req.ProductValue, req.Quantity); err != nil {
		return nil, err
	}
	for _, rate := range []decimal.NullDecimal{req.AdValoremRate, req.SpecificRate} {
		if rate.Valid && rate.Decimal.IsNegative() {
			return nil, &engine.InputError{Err: engine.ErrInvalidInput, Message: "Rates must be non-negative"}
		}
	}
	return &model.ComputeDutyResponseDTO{
		TariffAmount: engine.ComputeDuty(req.AdValoremRate, req.SpecificRate, req.ProductValue, req.Quantity),
	}, nil
}

// Convert converts an amount between currencies, rounded to cents.
// A missing rate returns the amount unchanged with a warning.
func (s *CalculationService) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf *time.Time) (*model.ConversionResponseDTO, error) {
	if amount.IsNegative() {
		return nil, &engine.InputError{Err: engine.ErrInvalidInput, Message: "Amount must be non-negative"}
	}
	conversion, err := s.calculator.Converter().ConvertMoney(ctx, amount, from, to, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to %s: %w", from, to, err)
	}

	response := &model.ConversionResponseDTO{
		Amount:          amount,
		FromCurrency:    conversion.Quote.From,
		ToCurrency:      conversion.Quote.To,
		ConvertedAmount: conversion.Amount,
		Converted:       conversion.Converted,
	}
	if warning := conversion.Quote.Warning(); warning != nil {
		response.Warnings = []model.Warning{*warning}
	}
	return response, nil
}

// GetCalculation returns a stored calculation, or engine.ErrNotFound.
func (s *CalculationService) GetCalculation(ctx context.Context, id uuid.UUID) (*model.CalculationRecord, error) {
	if s.records == nil {
		return nil, engine.ErrNotFound
	}
	return s.records.GetByID(ctx, id)
}

// ListCalculations returns a page of a caller's calculation history.
func (s *CalculationService) ListCalculations(ctx context.Context, filter model.CalculationRecordFilter) (*model.CalculationRecordListResult, error) {
	if s.records == nil {
		return &model.CalculationRecordListResult{Items: []model.CalculationRecord{}}, nil
	}
	return s.records.ListByRequester(ctx, filter)
}

// OpenReport streams the archived report of a stored calculation.
func (s *CalculationService) OpenReport(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	record, err := s.GetCalculation(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if record.ReportKey == nil || s.archiver == nil {
		return nil, "", ErrReportNotArchived
	}
	return s.archiver.Open(ctx, *record.ReportKey)
}

// record persists and archives a successful result. Failures are logged only.
func (s *CalculationService) record(ctx context.Context, result *model.CalculationResult, requestedBy string) *model.CalculationResponseDTO {
	response := &model.CalculationResponseDTO{CalculationResult: result}
	if result.Failed() || !s.opts.PersistCalculations {
		return response
	}

	record := newCalculationRecord(result, requestedBy)
	if err := s.records.Create(ctx, record); err != nil {
		slog.ErrorContext(ctx, "failed to persist calculation", "hts_code", result.HTSCode, "error", err)
		return response
	}
	response.CalculationID = &record.ID

	if !s.opts.ArchiveReports {
		return response
	}
	metadata, err := s.archiver.Archive(ctx, record.ID, requestedBy, result)
	if err != nil {
		slog.ErrorContext(ctx, "failed to archive calculation report", "calculation_id", record.ID, "error", err)
		return response
	}
	if err := s.records.SetReportKey(ctx, record.ID, metadata.Key); err != nil {
		slog.ErrorContext(ctx, "failed to link calculation report", "calculation_id", record.ID, "key", metadata.Key, "error", err)
		return response
	}
	response.ReportURL = metadata.URL
	return response
}

func newCalculationRecord(result *model.CalculationResult, requestedBy string) *model.CalculationRecord {
	return &model.CalculationRecord{
		HTSCode:            result.HTSCode,
		OriginCountry:      engine.NormalizeOptionalText(result.OriginCountry),
		DestinationCountry: result.DestinationCountry,
		Currency:           result.Currency,
		MFNTariffAmount:    result.MFNTariffAmount,
		BestTariffAmount:   result.BestTariffAmount,
		BestProgramName:    result.BestProgramName,
		Savings:            result.Savings(),
		RequestedBy:        engine.NormalizeOptionalText(requestedBy),
		Result:             *result,
	}
}
