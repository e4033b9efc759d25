package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateType is the closed set of rate classes held by the rate store.
type RateType string

const (
	RateTypeMFN          RateType = "MFN"
	RateTypePreferential RateType = "PREFERENTIAL"
)

// MFNProgramName is reported as the best program when no preference beats the default rate.
const MFNProgramName = "MFN"

// Validity is an effective/expiration window shared by rates, agreements and memberships.
// A nil ExpirationDate is open-ended.
type Validity struct {
	EffectiveDate  *time.Time `gorm:"type:date;column:effective_date" json:"effectiveDate,omitempty"`
	ExpirationDate *time.Time `gorm:"type:date;column:expiration_date" json:"expirationDate,omitempty"`
}

// RateSpec is a tariff rate record as seen by the duty engine.
// An absent component contributes zero duty; both absent is a free rate.
type RateSpec struct {
	AdValoremRate decimal.NullDecimal `json:"adValoremRate"` // fraction of value, 0.10 = 10%
	SpecificRate  decimal.NullDecimal `json:"specificRate"`  // charge per unit of quantity
	Description   *string             `json:"description,omitempty"`
	Validity
}

// IsFree reports whether neither rate component is present.
func (r RateSpec) IsFree() bool {
	return !r.AdValoremRate.Valid && !r.SpecificRate.Valid
}

// AgreementRef identifies the trade agreement a preferential rate belongs to.
type AgreementRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DisplayName returns the agreement name, falling back to its code.
func (a AgreementRef) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Code
}

// PreferentialRate is a RateSpec available only under a trade agreement.
type PreferentialRate struct {
	RateSpec
	Agreement AgreementRef `json:"agreement"`
}

// TariffRate is the persisted form of both default and preferential rates.
type TariffRate struct {
	BaseModel
	HTSCode            string              `gorm:"type:varchar(8);column:hts_code;not null;index" json:"htsCode"`
	RateType           RateType            `gorm:"type:varchar(20);column:rate_type;not null" json:"rateType"`
	DestinationCountry *string             `gorm:"type:varchar(3);column:destination_country;index" json:"destinationCountry,omitempty"`
	AgreementCode      *string             `gorm:"type:varchar(50);column:agreement_code" json:"agreementCode,omitempty"`
	AdValoremRate      decimal.NullDecimal `gorm:"type:numeric(12,6);column:ad_valorem_rate" json:"adValoremRate"`
	SpecificRate       decimal.NullDecimal `gorm:"type:numeric(14,4);column:specific_rate" json:"specificRate"`
	Description        *string             `gorm:"type:text;column:description" json:"description,omitempty"`
	Validity

	Agreement *TradeAgreement `gorm:"foreignKey:AgreementCode;references:Code" json:"agreement,omitempty"`
}

func (t *TariffRate) TableName() string {
	return "tariff_rates"
}

// Spec returns the engine view of the stored rate.
func (t *TariffRate) Spec() RateSpec {
	return RateSpec{
		AdValoremRate: t.AdValoremRate,
		SpecificRate:  t.SpecificRate,
		Description:   t.Description,
		Validity:      t.Validity,
	}
}

// Preferential returns the rate tagged with its agreement. The agreement name
// is taken from the preloaded agreement when present.
func (t *TariffRate) Preferential() PreferentialRate {
	ref := AgreementRef{}
	if t.AgreementCode != nil {
		ref.Code = *t.AgreementCode
	}
	if t.Agreement != nil {
		ref.Code = t.Agreement.Code
		ref.Name = t.Agreement.Name
	}
	return PreferentialRate{RateSpec: t.Spec(), Agreement: ref}
}
