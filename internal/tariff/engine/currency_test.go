package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// latest is the typed nil passed for "latest rate" lookups.
var latest *time.Time

func noRate() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

func TestConverter_SameCurrencyIsIdentity(t *testing.T) {
	rates := new(MockExchangeRateSource)
	converter := NewConverter(rates)
	ctx := context.Background()

	for _, amount := range []string{"0", "1.005", "150.00", "999999999.999"} {
		for _, code := range []string{"USD", "EUR", "jpy"} {
			got, err := converter.Convert(ctx, dec(amount), code, code, dayPtr("2024-01-01"))
			require.NoError(t, err)
			assert.True(t, dec(amount).Equal(got.Amount))
			assert.False(t, got.Converted)
			assert.Nil(t, got.Quote.Warning())
		}
	}

	rates.AssertNotCalled(t, "FindExchangeRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConverter_BlankCurrencyIsNoConversion(t *testing.T) {
	rates := new(MockExchangeRateSource)
	converter := NewConverter(rates)

	got, err := converter.Convert(context.Background(), dec("10"), "", "EUR", nil)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Amount.String())

	got, err = converter.Convert(context.Background(), dec("10"), "USD", " ", nil)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Amount.String())

	rates.AssertNotCalled(t, "FindExchangeRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConverter_DirectRate(t *testing.T) {
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, "USD", "EUR", latest).Return(nullDec("0.9137"), nil)
	converter := NewConverter(rates)

	got, err := converter.ConvertMoney(context.Background(), dec("150.00"), "usd", "eur", nil)
	require.NoError(t, err)
	assert.True(t, got.Converted)
	assert.False(t, got.Quote.Reverse)
	assert.Equal(t, dec("150.00").Mul(dec("0.9137")).Round(2).String(), got.Amount.String())
	assert.Equal(t, "137.06", got.Amount.StringFixed(2))
	rates.AssertExpectations(t)
}

func TestConverter_ReverseRate(t *testing.T) {
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, "USD", "GBP", latest).Return(noRate(), nil)
	rates.On("FindExchangeRate", mock.Anything, "GBP", "USD", latest).Return(nullDec("1.25"), nil)
	converter := NewConverter(rates)

	got, err := converter.ConvertMoney(context.Background(), dec("100"), "USD", "GBP", nil)
	require.NoError(t, err)
	assert.True(t, got.Converted)
	assert.True(t, got.Quote.Reverse)
	assert.Equal(t, "80.00", got.Amount.StringFixed(2))
	rates.AssertExpectations(t)
}

func TestConverter_ReverseRateMatchesRoundedQuotient(t *testing.T) {
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, "USD", "CAD", latest).Return(noRate(), nil)
	rates.On("FindExchangeRate", mock.Anything, "CAD", "USD", latest).Return(nullDec("0.7321"), nil)
	converter := NewConverter(rates)

	for _, amount := range []string{"1", "75.00", "1234.56"} {
		got, err := converter.ConvertMoney(context.Background(), dec(amount), "USD", "CAD", nil)
		require.NoError(t, err)
		want := dec(amount).DivRound(dec("0.7321"), 2)
		assert.True(t, want.Equal(got.Amount), "amount=%s want=%s got=%s", amount, want, got.Amount)
	}
}

func TestConverter_ZeroReverseRateIsUnavailable(t *testing.T) {
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, "USD", "XAU", latest).Return(noRate(), nil)
	rates.On("FindExchangeRate", mock.Anything, "XAU", "USD", latest).Return(nullDec("0"), nil)
	converter := NewConverter(rates)

	got, err := converter.ConvertMoney(context.Background(), dec("42.10"), "USD", "XAU", nil)
	require.NoError(t, err)
	assert.False(t, got.Converted)
	assert.Equal(t, "42.1", got.Amount.String())
	require.NotNil(t, got.Quote.Warning())
	assert.Equal(t, model.WarningCurrencyRateUnavailable, got.Quote.Warning().Code)
}

func TestConverter_NoRateReturnsAmountUnchanged(t *testing.T) {
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(noRate(), nil)
	converter := NewConverter(rates)

	got, err := converter.ConvertMoney(context.Background(), dec("99.99"), "USD", "BRL", dayPtr("2024-02-01"))
	require.NoError(t, err)
	assert.False(t, got.Converted)
	assert.Equal(t, "99.99", got.Amount.String())
	// dated and latest lookups in both directions
	rates.AssertNumberOfCalls(t, "FindExchangeRate", 4)
}

func TestConverter_DatedLookupFallsBackToLatest(t *testing.T) {
	asOf := dayPtr("2024-02-01")
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, "USD", "EUR", asOf).Return(noRate(), nil).Once()
	rates.On("FindExchangeRate", mock.Anything, "USD", "EUR", latest).Return(nullDec("0.5"), nil).Once()
	converter := NewConverter(rates)

	got, err := converter.ConvertMoney(context.Background(), dec("10"), "USD", "EUR", asOf)
	require.NoError(t, err)
	assert.True(t, got.Converted)
	assert.Equal(t, "5.00", got.Amount.StringFixed(2))
	rates.AssertExpectations(t)
}

func TestConverter_DatedRateIsPreferred(t *testing.T) {
	asOf := dayPtr("2024-02-01")
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, "USD", "EUR", asOf).Return(nullDec("0.8"), nil).Once()
	converter := NewConverter(rates)

	got, err := converter.ConvertMoney(context.Background(), dec("10"), "USD", "EUR", asOf)
	require.NoError(t, err)
	assert.Equal(t, "8.00", got.Amount.StringFixed(2))
	rates.AssertNotCalled(t, "FindExchangeRate", mock.Anything, "USD", "EUR", latest)
}

func TestConverter_StoreErrorIsReturned(t *testing.T) {
	rates := new(MockExchangeRateSource)
	rates.On("FindExchangeRate", mock.Anything, "USD", "EUR", latest).Return(noRate(), errors.New("connection reset"))
	converter := NewConverter(rates)

	_, err := converter.Convert(context.Background(), dec("10"), "USD", "EUR", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
