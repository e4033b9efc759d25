package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// MockProductStore
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) FindProduct(ctx context.Context, code model.ProductCode) (*model.HTSCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HTSCode), args.Error(1)
}

// MockRateStore
type MockRateStore struct {
	mock.Mock
}

func (m *MockRateStore) FindDefaultRates(ctx context.Context, code model.ProductCode) ([]model.RateSpec, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RateSpec), args.Error(1)
}

func (m *MockRateStore) FindPreferentialRates(ctx context.Context, code model.ProductCode, destinationCountry string) ([]model.PreferentialRate, error) {
	args := m.Called(ctx, code, destinationCountry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PreferentialRate), args.Error(1)
}

// MockAgreementStore
type MockAgreementStore struct {
	mock.Mock
}

func (m *MockAgreementStore) FindAgreementsBetween(ctx context.Context, originCountry, destinationCountry string) ([]model.TradeAgreement, error) {
	args := m.Called(ctx, originCountry, destinationCountry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TradeAgreement), args.Error(1)
}

// MockExchangeRateSource
type MockExchangeRateSource struct {
	mock.Mock
}

func (m *MockExchangeRateSource) FindExchangeRate(ctx context.Context, from, to string, asOf *time.Time) (decimal.NullDecimal, error) {
	args := m.Called(ctx, from, to, asOf)
	return args.Get(0).(decimal.NullDecimal), args.Error(1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func rateSpec(adValorem, specific string, effective string) model.RateSpec {
	spec := model.RateSpec{Validity: model.Validity{EffectiveDate: dayPtr(effective)}}
	if adValorem != "" {
		spec.AdValoremRate = nullDec(adValorem)
	}
	if specific != "" {
		spec.SpecificRate = nullDec(specific)
	}
	return spec
}

func preferential(code, name, adValorem, specific string) model.PreferentialRate {
	return model.PreferentialRate{
		RateSpec:  rateSpec(adValorem, specific, "2020-01-01"),
		Agreement: model.AgreementRef{Code: code, Name: name},
	}
}
