package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ProductStore resolves normalized product codes to known HTS subheadings.
type ProductStore interface {
	FindProduct(ctx context.Context, code model.ProductCode) (*model.HTSCode, error)
}

// RateStore supplies the default rates and the preferential candidates of a product.
type RateStore interface {
	// FindDefaultRates returns every MFN rate recorded for the product, whatever
	// its validity. An empty slice means the product has no MFN rate.
	FindDefaultRates(ctx context.Context, code model.ProductCode) ([]model.RateSpec, error)
	FindPreferentialRates(ctx context.Context, code model.ProductCode, destinationCountry string) ([]model.PreferentialRate, error)
}

// AgreementStore supplies the trade agreements linking two countries.
type AgreementStore interface {
	FindAgreementsBetween(ctx context.Context, originCountry, destinationCountry string) ([]model.TradeAgreement, error)
}

// ExchangeRateSource supplies a rate between two currencies. A nil asOf asks for
// the latest known rate. An invalid NullDecimal means no rate is known.
type ExchangeRateSource interface {
	FindExchangeRate(ctx context.Context, from, to string, asOf *time.Time) (decimal.NullDecimal, error)
}
