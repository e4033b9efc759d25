package engine

import (
	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// moneyPlaces is the number of minor-unit digits kept in monetary results.
const moneyPlaces = 2

// ComputeDuty returns adValorem*value + specific*quantity rounded once to cents.
// An absent rate component contributes nothing.
func ComputeDuty(adValorem, specific decimal.NullDecimal, value decimal.Decimal, quantity int64) decimal.Decimal {
	duty := decimal.Zero
	if adValorem.Valid {
		duty = duty.Add(adValorem.Decimal.Mul(value))
	}
	if specific.Valid {
		duty = duty.Add(specific.Decimal.Mul(decimal.NewFromInt(quantity)))
	}
	return RoundMoney(duty)
}

// DutyFor computes the duty owed under a rate record.
func DutyFor(rate model.RateSpec, value decimal.Decimal, quantity int64) decimal.Decimal {
	return ComputeDuty(rate.AdValoremRate, rate.SpecificRate, value, quantity)
}

// RoundMoney rounds half away from zero to two decimal places, which is
// round-half-up for the non-negative amounts the engine produces.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyPlaces)
}
