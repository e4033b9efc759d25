package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/OpenNSW/tariff/internal/reports"
	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// MockCalculationStore
type MockCalculationStore struct {
	mock.Mock
}

func (m *MockCalculationStore) Create(ctx context.Context, record *model.CalculationRecord) error {
	args := m.Called(ctx, record)
	if args.Error(0) == nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockCalculationStore) SetReportKey(ctx context.Context, id uuid.UUID, key string) error {
	args := m.Called(ctx, id, key)
	return args.Error(0)
}

func (m *MockCalculationStore) GetByID(ctx context.Context, id uuid.UUID) (*model.CalculationRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CalculationRecord), args.Error(1)
}

func (m *MockCalculationStore) ListByRequester(ctx context.Context, filter model.CalculationRecordFilter) (*model.CalculationRecordListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CalculationRecordListResult), args.Error(1)
}

// MockReportArchiver
type MockReportArchiver struct {
	mock.Mock
}

func (m *MockReportArchiver) Archive(ctx context.Context, calculationID uuid.UUID, requestedBy string, result *model.CalculationResult) (*reports.ReportMetadata, error) {
	args := m.Called(ctx, calculationID, requestedBy, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reports.ReportMetadata), args.Error(1)
}

func (m *MockReportArchiver) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

// fakeStores is an in-memory catalog backing the calculator in service tests.
type fakeStores struct {
	products   map[model.ProductCode]*model.HTSCode
	mfn        map[model.ProductCode][]model.RateSpec
	agreements []model.TradeAgreement
	fx         map[string]decimal.Decimal
}

func (f *fakeStores) FindProduct(ctx context.Context, code model.ProductCode) (*model.HTSCode, error) {
	if p, ok := f.products[code]; ok {
		return p, nil
	}
	return nil, errNotFound
}

func (f *fakeStores) FindDefaultRates(ctx context.Context, code model.ProductCode) ([]model.RateSpec, error) {
	return f.mfn[code], nil
}

func (f *fakeStores) FindPreferentialRates(ctx context.Context, code model.ProductCode, destinationCountry string) ([]model.PreferentialRate, error) {
	return []model.PreferentialRate{}, nil
}

func (f *fakeStores) FindAgreementsBetween(ctx context.Context, originCountry, destinationCountry string) ([]model.TradeAgreement, error) {
	return f.agreements, nil
}

func (f *fakeStores) List(ctx context.Context) ([]model.TradeAgreement, error) {
	return f.agreements, nil
}

func (f *fakeStores) FindExchangeRate(ctx context.Context, from, to string, asOf *time.Time) (decimal.NullDecimal, error) {
	if rate, ok := f.fx[from+to]; ok {
		return decimal.NewNullDecimal(rate), nil
	}
	return decimal.NullDecimal{}, nil
}
