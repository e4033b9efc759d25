package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// DefaultBaseCurrency is the currency rates and product values are expressed in
// when no base currency is configured.
const DefaultBaseCurrency = "USD"

// Calculator is the top-level duty calculation entry point. It holds no
// mutable state and is safe for concurrent use when its stores are.
type Calculator struct {
	products     ProductStore
	rates        RateStore
	agreements   AgreementStore
	converter    *Converter
	baseCurrency string
	now          func() time.Time
}

// Option customizes a Calculator.
type Option func(*Calculator)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

// WithBaseCurrency sets the currency product values and rates are expressed in.
func WithBaseCurrency(code string) Option {
	return func(c *Calculator) {
		if code = NormalizeCurrency(code); code != "" {
			c.baseCurrency = code
		}
	}
}

// NewCalculator creates a Calculator over the given stores.
func NewCalculator(products ProductStore, rates RateStore, agreements AgreementStore, fx ExchangeRateSource, opts ...Option) *Calculator {
	c := &Calculator{
		products:     products,
		rates:        rates,
		agreements:   agreements,
		converter:    NewConverter(fx),
		baseCurrency: DefaultBaseCurrency,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseCurrency returns the configured base currency.
func (c *Calculator) BaseCurrency() string {
	return c.baseCurrency
}

// Converter returns the currency converter used for result amounts.
func (c *Calculator) Converter() *Converter {
	return c.converter
}

// CalculateTariff evaluates the duty on in.Date, or today when no date is given.
// It always returns a result; failures are reported in its Error field.
func (c *Calculator) CalculateTariff(ctx context.Context, in model.CalculationInput) *model.CalculationResult {
	today := c.now()
	ev := On(today)
	var asOf *time.Time
	if in.Date != nil {
		ev = On(*in.Date)
		asOf = in.Date
	}
	return c.calculate(ctx, in, ev, asOf, today)
}

// CalculateTariffWithDateRange evaluates rates valid at any point of [start, end].
func (c *Calculator) CalculateTariffWithDateRange(ctx context.Context, in model.CalculationInput, start, end time.Time) *model.CalculationResult {
	today := c.now()
	ev := Between(start, end)
	if end.Before(start) {
		return failedResult(in, ev, today, invalidInput("End date must not be before start date"))
	}
	return c.calculate(ctx, in, ev, &end, today)
}

func (c *Calculator) calculate(ctx context.Context, in model.CalculationInput, ev Evaluation, asOf *time.Time, today time.Time) (result *model.CalculationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "tariff calculation panicked", "hts_code", in.HTSCode, "panic", r)
			result = failedResult(in, ev, today, fmt.Errorf("%v", r))
		}
	}()

	in, err := c.normalizeInput(in)
	if err != nil {
		return failedResult(in, ev, today, err)
	}
	code := model.ProductCode(in.HTSCode)

	product, err := c.products.FindProduct(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return failedResult(in, ev, today, &InputError{Err: ErrProductNotFound, Message: productNotFoundMessage})
		}
		return failedResult(in, ev, today, fmt.Errorf("failed to look up HTS code %s: %w", code, err))
	}

	defaultRates, err := c.rates.FindDefaultRates(ctx, code)
	if err != nil {
		return failedResult(in, ev, today, fmt.Errorf("failed to look up MFN rates: %w", err))
	}

	candidates, err := c.rates.FindPreferentialRates(ctx, code, in.DestinationCountry)
	if err != nil {
		return failedResult(in, ev, today, fmt.Errorf("failed to look up preferential rates: %w", err))
	}

	if in.OriginCountry != "" && len(candidates) > 0 {
		agreements, err := c.agreements.FindAgreementsBetween(ctx, in.OriginCountry, in.DestinationCountry)
		if err != nil {
			return failedResult(in, ev, today, fmt.Errorf("failed to look up trade agreements: %w", err))
		}
		candidates = restrictToAgreements(candidates, EligibleAgreements(agreements, ev, today))
	}

	result = SelectBestRate(in, defaultRates, candidates, ev, today)
	result.Description = product.Description
	result.BaseCurrency = c.baseCurrency
	tagSpecificRates(result, c.baseCurrency)

	if in.Currency != c.baseCurrency {
		if err := c.convertResult(ctx, result, asOf); err != nil {
			return failedResult(in, ev, today, fmt.Errorf("failed to convert amounts to %s: %w", in.Currency, err))
		}
	}

	slog.DebugContext(ctx, "tariff calculated",
		"hts_code", result.HTSCode,
		"destination", result.DestinationCountry,
		"best_program", result.BestProgramName,
		"best_amount", result.BestTariffAmount.String(),
	)
	return result
}

// normalizeInput validates amounts before anything else, then cleans codes.
func (c *Calculator) normalizeInput(in model.CalculationInput) (model.CalculationInput, error) {
	in.OriginCountry = NormalizeCountry(in.OriginCountry)
	in.DestinationCountry = NormalizeCountry(in.DestinationCountry)
	in.Currency = NormalizeCurrency(in.Currency)
	if in.Currency == "" {
		in.Currency = c.baseCurrency
	}

	if err := ValidateAmounts(in.ProductValue, in.Quantity); err != nil {
		return in, err
	}
	code, err := NormalizeProductCode(in.HTSCode)
	if err != nil {
		return in, err
	}
	in.HTSCode = code.String()
	if in.DestinationCountry == "" {
		return in, invalidInput("Destination country is required")
	}
	return in, nil
}

// convertResult moves every monetary field from the base currency to the
// requested currency. Without a rate the amounts stay in the base currency.
func (c *Calculator) convertResult(ctx context.Context, result *model.CalculationResult, asOf *time.Time) error {
	quote, err := c.converter.Resolve(ctx, c.baseCurrency, result.Currency, asOf)
	if err != nil {
		return err
	}
	if warning := quote.Warning(); warning != nil {
		result.AddWarning(warning)
		result.Currency = c.baseCurrency
		return nil
	}

	convert := func(amount decimal.Decimal) decimal.Decimal {
		return RoundMoney(quote.Apply(amount))
	}
	result.ProductValue = convert(result.ProductValue)
	result.MFNTariffAmount = convert(result.MFNTariffAmount)
	result.BestTariffAmount = convert(result.BestTariffAmount)
	for i := range result.PreferentialRates {
		result.PreferentialRates[i].TariffAmount = convert(result.PreferentialRates[i].TariffAmount)
	}
	if result.RecommendedRate != nil {
		result.RecommendedRate.TariffAmount = convert(result.RecommendedRate.TariffAmount)
		result.RecommendedRate.Savings = result.MFNTariffAmount.Sub(result.BestTariffAmount)
	}
	return nil
}

// tagSpecificRates marks every per-unit rate with the currency it is charged in.
func tagSpecificRates(result *model.CalculationResult, currency string) {
	if result.MFNRate != nil && result.MFNRate.SpecificRate.Valid {
		result.MFNRate.SpecificRateCurrency = currency
	}
	for i := range result.PreferentialRates {
		if result.PreferentialRates[i].SpecificRate.Valid {
			result.PreferentialRates[i].SpecificRateCurrency = currency
		}
	}
}

// restrictToAgreements keeps candidates whose agreement links both countries.
func restrictToAgreements(candidates []model.PreferentialRate, agreements []model.TradeAgreement) []model.PreferentialRate {
	allowed := make(map[string]struct{}, len(agreements))
	for _, agreement := range agreements {
		allowed[agreement.Code] = struct{}{}
	}
	kept := make([]model.PreferentialRate, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := allowed[candidate.Agreement.Code]; ok {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// failedResult echoes the input and records the error. Input errors keep their
// own message; anything else is reported as a generic calculation failure.
func failedResult(in model.CalculationInput, ev Evaluation, today time.Time, err error) *model.CalculationResult {
	result := newResult(in, ev, today)
	result.ErrorCode = ErrorCodeFor(err)

	var inputErr *InputError
	if errors.As(err, &inputErr) {
		result.Error = inputErr.Message
	} else {
		result.Error = "Calculation failed: " + err.Error()
	}
	return result
}
