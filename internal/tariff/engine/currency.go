package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// divisionPlaces is the precision kept when converting through a reverse rate.
const divisionPlaces = 12

// Quote is a resolved conversion between two currencies.
type Quote struct {
	From     string
	To       string
	Rate     decimal.Decimal
	Reverse  bool // Rate is quoted To->From and is divided by
	Identity bool // no conversion needed
	Found    bool
}

// Apply converts an amount with the quote. Amounts pass through unchanged
// when no rate was found.
func (q Quote) Apply(amount decimal.Decimal) decimal.Decimal {
	switch {
	case q.Identity || !q.Found:
		return amount
	case q.Reverse:
		return amount.DivRound(q.Rate, divisionPlaces)
	default:
		return amount.Mul(q.Rate)
	}
}

// Warning describes a missing rate, nil when the quote is usable.
func (q Quote) Warning() *model.Warning {
	if q.Identity || q.Found {
		return nil
	}
	return &model.Warning{
		Code:    model.WarningCurrencyRateUnavailable,
		Message: fmt.Sprintf("No exchange rate between %s and %s; amounts are reported in %s", q.From, q.To, q.From),
	}
}

// Conversion is the outcome of converting a single amount.
type Conversion struct {
	Amount    decimal.Decimal
	Quote     Quote
	Converted bool
}

// Converter normalizes amounts between currencies using one direct and one
// reverse lookup.
type Converter struct {
	rates ExchangeRateSource
}

// NewConverter creates a Converter backed by the given rate source.
func NewConverter(rates ExchangeRateSource) *Converter {
	return &Converter{rates: rates}
}

// Resolve finds the rate for from->to. A dated lookup that finds nothing falls
// back to the latest rate. Missing rates are not an error.
func (c *Converter) Resolve(ctx context.Context, from, to string, asOf *time.Time) (Quote, error) {
	from, to = NormalizeCurrency(from), NormalizeCurrency(to)
	quote := Quote{From: from, To: to}
	if from == "" || to == "" || from == to {
		quote.Identity = true
		return quote, nil
	}

	direct, err := c.lookup(ctx, from, to, asOf)
	if err != nil {
		return quote, err
	}
	if direct.Valid {
		quote.Rate = direct.Decimal
		quote.Found = true
		return quote, nil
	}

	reverse, err := c.lookup(ctx, to, from, asOf)
	if err != nil {
		return quote, err
	}
	if reverse.Valid && !reverse.Decimal.IsZero() {
		quote.Rate = reverse.Decimal
		quote.Reverse = true
		quote.Found = true
	}
	return quote, nil
}

// Convert converts amount from one currency to another at full precision.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf *time.Time) (Conversion, error) {
	quote, err := c.Resolve(ctx, from, to, asOf)
	if err != nil {
		return Conversion{Amount: amount, Quote: quote}, err
	}
	return Conversion{
		Amount:    quote.Apply(amount),
		Quote:     quote,
		Converted: quote.Found,
	}, nil
}

// ConvertMoney converts amount and rounds the result to cents.
func (c *Converter) ConvertMoney(ctx context.Context, amount decimal.Decimal, from, to string, asOf *time.Time) (Conversion, error) {
	conversion, err := c.Convert(ctx, amount, from, to, asOf)
	if err != nil {
		return conversion, err
	}
	if conversion.Converted {
		conversion.Amount = RoundMoney(conversion.Amount)
	}
	return conversion, nil
}

func (c *Converter) lookup(ctx context.Context, from, to string, asOf *time.Time) (decimal.NullDecimal, error) {
	if asOf != nil {
		rate, err := c.rates.FindExchangeRate(ctx, from, to, asOf)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("failed to look up %s/%s rate on %s: %w", from, to, asOf.Format(model.DateLayout), err)
		}
		if rate.Valid {
			return rate, nil
		}
	}

	rate, err := c.rates.FindExchangeRate(ctx, from, to, nil)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("failed to look up latest %s/%s rate: %w", from, to, err)
	}
	return rate, nil
}
