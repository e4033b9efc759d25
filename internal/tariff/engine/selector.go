package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// SelectBestRate computes the duty under the MFN rate in force and under every
// eligible preferential rate, and picks the cheapest program. A preference wins
// only when strictly cheaper than MFN; among equal preferences the first in input
// order wins.
func SelectBestRate(in model.CalculationInput, defaultRates []model.RateSpec, candidates []model.PreferentialRate, ev Evaluation, today time.Time) *model.CalculationResult {
	result := newResult(in, ev, today)

	mfnRate, warning := EligibleDefault(defaultRates, ev, today)
	result.AddWarning(warning)
	mfnDuty := RoundMoney(decimal.Zero)
	if mfnRate != nil {
		mfnDuty = DutyFor(*mfnRate, in.ProductValue, in.Quantity)
		result.MFNRate = &model.RateDetail{
			AdValoremRate: mfnRate.AdValoremRate,
			SpecificRate:  mfnRate.SpecificRate,
			Description:   mfnRate.Description,
		}
	}
	result.MFNTariffAmount = mfnDuty

	eligible, warning := FilterPreferential(candidates, ev, today)
	result.AddWarning(warning)

	best := -1
	for i, rate := range eligible {
		duty := model.PreferentialDuty{
			AgreementCode: rate.Agreement.Code,
			AgreementName: rate.Agreement.DisplayName(),
			RateDetail: model.RateDetail{
				AdValoremRate: rate.AdValoremRate,
				SpecificRate:  rate.SpecificRate,
				Description:   rate.Description,
			},
			TariffAmount: DutyFor(rate.RateSpec, in.ProductValue, in.Quantity),
		}
		result.PreferentialRates = append(result.PreferentialRates, duty)
		if best < 0 || duty.TariffAmount.LessThan(result.PreferentialRates[best].TariffAmount) {
			best = i
		}
	}

	result.BestTariffAmount = mfnDuty
	result.BestProgramName = model.MFNProgramName
	result.RecommendedRate = &model.RecommendedRate{
		ProgramName:  model.MFNProgramName,
		TariffAmount: mfnDuty,
		Savings:      RoundMoney(decimal.Zero),
	}

	preferenceSelected := best >= 0 && result.PreferentialRates[best].TariffAmount.LessThan(mfnDuty)
	if preferenceSelected {
		winner := result.PreferentialRates[best]
		result.BestTariffAmount = winner.TariffAmount
		result.BestProgramName = winner.AgreementName
		result.RecommendedRate = &model.RecommendedRate{
			ProgramName:   winner.AgreementName,
			AgreementCode: winner.AgreementCode,
			TariffAmount:  winner.TariffAmount,
			Savings:       mfnDuty.Sub(winner.TariffAmount),
		}
	}

	result.ComplianceNotes = ComplianceNotes(result.PreferentialRates, preferenceSelected)
	return result
}

// newResult echoes the input into an empty result.
func newResult(in model.CalculationInput, ev Evaluation, today time.Time) *model.CalculationResult {
	result := &model.CalculationResult{
		HTSCode:            in.HTSCode,
		OriginCountry:      in.OriginCountry,
		DestinationCountry: in.DestinationCountry,
		ProductValue:       in.ProductValue,
		Quantity:           in.Quantity,
		Currency:           in.Currency,
		PreferentialRates:  []model.PreferentialDuty{},
		ComplianceNotes:    []string{},
	}
	if ev.Range != nil {
		r := *ev.Range
		result.DateRange = &r
		result.CalculationDate = today.Format(model.DateLayout)
	} else {
		result.CalculationDate = ev.AsOf.Format(model.DateLayout)
	}
	return result
}
