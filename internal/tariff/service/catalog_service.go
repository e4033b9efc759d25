package service

import (
	"context"
	"time"

	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// HTSCodeReader lists and looks up schedule entries.
type HTSCodeReader interface {
	engine.ProductStore
	List(ctx context.Context, filter model.HTSCodeFilter) (*model.HTSCodeListResult, error)
}

// AgreementReader lists trade agreements.
type AgreementReader interface {
	engine.AgreementStore
	List(ctx context.Context) ([]model.TradeAgreement, error)
}

// CatalogService exposes the reference data the calculator works from.
type CatalogService struct {
	htsCodes   HTSCodeReader
	agreements AgreementReader
	now        func() time.Time
}

func NewCatalogService(htsCodes HTSCodeReader, agreements AgreementReader) *CatalogService {
	return &CatalogService{htsCodes: htsCodes, agreements: agreements, now: time.Now}
}

// ListHTSCodes returns a page of HTS codes.
func (s *CatalogService) ListHTSCodes(ctx context.Context, filter model.HTSCodeFilter) (*model.HTSCodeListResult, error) {
	return s.htsCodes.List(ctx, filter)
}

// GetHTSCode normalizes code and returns its schedule entry.
func (s *CatalogService) GetHTSCode(ctx context.Context, code string) (*model.HTSCode, error) {
	productCode, err := engine.NormalizeProductCode(code)
	if err != nil {
		return nil, err
	}
	return s.htsCodes.FindProduct(ctx, productCode)
}

// ListAgreements returns every agreement, or only those in force between two
// countries on asOf (today when nil) when both countries are given.
func (s *CatalogService) ListAgreements(ctx context.Context, originCountry, destinationCountry string, asOf *time.Time) ([]model.TradeAgreement, error) {
	origin := engine.NormalizeCountry(originCountry)
	destination := engine.NormalizeCountry(destinationCountry)
	if origin == "" || destination == "" {
		return s.agreements.List(ctx)
	}

	agreements, err := s.agreements.FindAgreementsBetween(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	today := s.now()
	on := today
	if asOf != nil {
		on = *asOf
	}
	return engine.EligibleAgreements(agreements, engine.On(on), today), nil
}
