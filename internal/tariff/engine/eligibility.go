package engine

import (
	"fmt"
	"time"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// Evaluation is either a single calculation date or an inclusive date range.
type Evaluation struct {
	AsOf  time.Time
	Range *model.DateRange
}

// On evaluates validity on a single date.
func On(date time.Time) Evaluation {
	return Evaluation{AsOf: date}
}

// Between evaluates validity against an inclusive date range.
func Between(start, end time.Time) Evaluation {
	return Evaluation{AsOf: end, Range: &model.DateRange{Start: start, End: end}}
}

// IsRange reports whether the evaluation covers a date range.
func (e Evaluation) IsRange() bool {
	return e.Range != nil
}

func (e Evaluation) String() string {
	if e.Range != nil {
		return fmt.Sprintf("%s..%s", e.Range.Start.Format(model.DateLayout), e.Range.End.Format(model.DateLayout))
	}
	return e.AsOf.Format(model.DateLayout)
}

// IsEligible reports whether a validity window is in force for the evaluation.
// A window without an effective date is never in force.
func IsEligible(v model.Validity, ev Evaluation) bool {
	if v.EffectiveDate == nil {
		return false
	}
	effective := dateOf(*v.EffectiveDate)

	if ev.Range != nil {
		start, end := dateOf(ev.Range.Start), dateOf(ev.Range.End)
		if effective.After(end) {
			return false
		}
		return v.ExpirationDate == nil || !dateOf(*v.ExpirationDate).Before(start)
	}

	asOf := dateOf(ev.AsOf)
	if effective.After(asOf) {
		return false
	}
	return v.ExpirationDate == nil || !asOf.After(dateOf(*v.ExpirationDate))
}

// FilterPreferential keeps the candidates in force for the evaluation, in input order.
// When a date range matches none of the candidates, they are evaluated as of today
// instead and a warning is returned.
func FilterPreferential(rates []model.PreferentialRate, ev Evaluation, today time.Time) ([]model.PreferentialRate, *model.Warning) {
	eligible := filterRates(rates, ev)
	if len(eligible) > 0 || len(rates) == 0 || !ev.IsRange() {
		return eligible, nil
	}

	warning := &model.Warning{
		Code:    model.WarningDateRangeFallback,
		Message: fmt.Sprintf("No preferential rate is valid within %s; evaluated as of %s", ev, today.Format(model.DateLayout)),
	}
	return filterRates(rates, On(today)), warning
}

// EligibleDefault picks the MFN rate in force for the evaluation from all
// recorded MFN rates, applying the same range fallback as FilterPreferential.
// When several are in force the one with the latest effective date wins.
func EligibleDefault(rates []model.RateSpec, ev Evaluation, today time.Time) (*model.RateSpec, *model.Warning) {
	if len(rates) == 0 {
		return nil, &model.Warning{Code: model.WarningMFNRateMissing, Message: "No MFN rate is recorded for this product; MFN duty is zero"}
	}
	if rate := latestInForce(rates, ev); rate != nil {
		return rate, nil
	}
	if ev.IsRange() {
		if rate := latestInForce(rates, On(today)); rate != nil {
			return rate, &model.Warning{
				Code:    model.WarningDateRangeFallback,
				Message: fmt.Sprintf("MFN rate is not valid within %s; evaluated as of %s", ev, today.Format(model.DateLayout)),
			}
		}
	}
	return nil, &model.Warning{
		Code:    model.WarningMFNRateNotInForce,
		Message: fmt.Sprintf("MFN rate is not in force on %s; MFN duty is zero", ev),
	}
}

// latestInForce returns the eligible rate with the latest effective date, the
// first one on ties.
func latestInForce(rates []model.RateSpec, ev Evaluation) *model.RateSpec {
	var latest *model.RateSpec
	for i := range rates {
		if !IsEligible(rates[i].Validity, ev) {
			continue
		}
		if latest == nil || rates[i].EffectiveDate.After(*latest.EffectiveDate) {
			latest = &rates[i]
		}
	}
	if latest == nil {
		return nil
	}
	picked := *latest
	return &picked
}

// EligibleAgreements keeps the agreements in force for the evaluation whose
// loaded memberships are in force as well.
func EligibleAgreements(agreements []model.TradeAgreement, ev Evaluation, today time.Time) []model.TradeAgreement {
	eligible := filterAgreements(agreements, ev)
	if len(eligible) == 0 && ev.IsRange() {
		eligible = filterAgreements(agreements, On(today))
	}
	return eligible
}

func filterRates(rates []model.PreferentialRate, ev Evaluation) []model.PreferentialRate {
	eligible := make([]model.PreferentialRate, 0, len(rates))
	for _, rate := range rates {
		if IsEligible(rate.Validity, ev) {
			eligible = append(eligible, rate)
		}
	}
	return eligible
}

func filterAgreements(agreements []model.TradeAgreement, ev Evaluation) []model.TradeAgreement {
	eligible := make([]model.TradeAgreement, 0, len(agreements))
	for _, agreement := range agreements {
		if !IsEligible(agreement.Validity, ev) {
			continue
		}
		membersInForce := true
		for _, member := range agreement.Members {
			if !IsEligible(member.Validity, ev) {
				membersInForce = false
				break
			}
		}
		if membersInForce {
			eligible = append(eligible, agreement)
		}
	}
	return eligible
}

// dateOf drops the clock part, keeping the calendar day of t in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
