package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ErrorCode tags a failed calculation result.
type ErrorCode string

const (
	ErrorCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorCodeInvalidFormat     ErrorCode = "INVALID_FORMAT"
	ErrorCodeProductNotFound   ErrorCode = "PRODUCT_NOT_FOUND"
	ErrorCodeCalculationFailed ErrorCode = "CALCULATION_FAILED"
)

// WarningCode tags a degraded but successful calculation result.
type WarningCode string

const (
	WarningDateRangeFallback       WarningCode = "DATE_RANGE_FALLBACK"
	WarningCurrencyRateUnavailable WarningCode = "CURRENCY_RATE_UNAVAILABLE"
	WarningMFNRateMissing          WarningCode = "MFN_RATE_MISSING"
	WarningMFNRateNotInForce       WarningCode = "MFN_RATE_NOT_IN_FORCE"
)

// Warning is a note attached to a result that is still usable.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// DateRange is an inclusive validity window requested by a caller.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CalculationInput is the caller supplied request for a duty calculation.
type CalculationInput struct {
	HTSCode            string
	OriginCountry      string // optional, only used for agreement lookup
	DestinationCountry string
	ProductValue       decimal.Decimal
	Quantity           int64
	Currency           string     // optional, defaults to the base currency
	Date               *time.Time // optional, defaults to today
}

// RateDetail describes the rate that produced a duty amount.
// SpecificRate stays in SpecificRateCurrency when the amounts are converted.
type RateDetail struct {
	AdValoremRate        decimal.NullDecimal `json:"adValoremRate"`
	SpecificRate         decimal.NullDecimal `json:"specificRate"`
	SpecificRateCurrency string              `json:"specificRateCurrency,omitempty"`
	Description          *string             `json:"description,omitempty"`
}

// PreferentialDuty is the duty computed under one eligible preferential rate.
type PreferentialDuty struct {
	AgreementCode string `json:"agreementCode"`
	AgreementName string `json:"agreementName"`
	RateDetail
	TariffAmount decimal.Decimal `json:"tariffAmount"`
}

// RecommendedRate is the selected program and its savings against MFN.
type RecommendedRate struct {
	ProgramName   string          `json:"programName"`
	AgreementCode string          `json:"agreementCode,omitempty"`
	TariffAmount  decimal.Decimal `json:"tariffAmount"`
	Savings       decimal.Decimal `json:"savings"`
}

// CalculationResult is built fresh for every call and always returned to the caller.
// A non-empty Error is the only failure signal; Warnings mark degraded results.
type CalculationResult struct {
	HTSCode            string             `json:"htsCode"`
	Description        string             `json:"description,omitempty"`
	OriginCountry      string             `json:"originCountry,omitempty"`
	DestinationCountry string             `json:"destinationCountry"`
	ProductValue       decimal.Decimal    `json:"productValue"`
	Quantity           int64              `json:"quantity"`
	Currency           string             `json:"currency"`
	BaseCurrency       string             `json:"baseCurrency"`
	CalculationDate    string             `json:"calculationDate,omitempty"`
	DateRange          *DateRange         `json:"dateRange,omitempty"`
	MFNRate            *RateDetail        `json:"mfnRate,omitempty"`
	MFNTariffAmount    decimal.Decimal    `json:"mfnTariffAmount"`
	PreferentialRates  []PreferentialDuty `json:"preferentialRates"`
	BestTariffAmount   decimal.Decimal    `json:"bestTariffAmount"`
	BestProgramName    string             `json:"bestProgramName"`
	RecommendedRate    *RecommendedRate   `json:"recommendedRate,omitempty"`
	ComplianceNotes    []string           `json:"complianceNotes"`
	Warnings           []Warning          `json:"warnings,omitempty"`
	ErrorCode          ErrorCode          `json:"errorCode,omitempty"`
	Error              string             `json:"error,omitempty"`
}

// Failed reports whether the result carries an error.
func (r *CalculationResult) Failed() bool {
	return r.Error != ""
}

// AddWarning appends a degraded-result note. A nil warning is ignored.
func (r *CalculationResult) AddWarning(w *Warning) {
	if w != nil {
		r.Warnings = append(r.Warnings, *w)
	}
}

// Savings returns the recommended savings, zero when nothing was recommended.
func (r *CalculationResult) Savings() decimal.Decimal {
	if r.RecommendedRate == nil {
		return decimal.Zero
	}
	return r.RecommendedRate.Savings
}

// CalculationRecord is a persisted copy of a successful calculation.
type CalculationRecord struct {
	BaseModel
	HTSCode            string            `gorm:"type:varchar(8);column:hts_code;not null;index" json:"htsCode"`
	OriginCountry      *string           `gorm:"type:varchar(3);column:origin_country" json:"originCountry,omitempty"`
	DestinationCountry string            `gorm:"type:varchar(3);column:destination_country;not null" json:"destinationCountry"`
	Currency           string            `gorm:"type:varchar(3);column:currency;not null" json:"currency"`
	MFNTariffAmount    decimal.Decimal   `gorm:"type:numeric(18,2);column:mfn_tariff_amount;not null" json:"mfnTariffAmount"`
	BestTariffAmount   decimal.Decimal   `gorm:"type:numeric(18,2);column:best_tariff_amount;not null" json:"bestTariffAmount"`
	BestProgramName    string            `gorm:"type:varchar(255);column:best_program_name;not null" json:"bestProgramName"`
	Savings            decimal.Decimal   `gorm:"type:numeric(18,2);column:savings;not null" json:"savings"`
	RequestedBy        *string           `gorm:"type:varchar(100);column:requested_by;index" json:"requestedBy,omitempty"`
	ReportKey          *string           `gorm:"type:varchar(255);column:report_key" json:"reportKey,omitempty"`
	Result             CalculationResult `gorm:"type:jsonb;column:result;serializer:json;not null" json:"result"`
}

func (c *CalculationRecord) TableName() string {
	return "calculation_records"
}

// CalculationRecordFilter is used when listing the calculation history of a caller
type CalculationRecordFilter struct {
	RequestedBy string
	Offset      *int
	Limit       *int
}

// CalculationRecordListResult represents a page of calculation history
type CalculationRecordListResult struct {
	TotalCount int64               `json:"totalCount"`
	Items      []CalculationRecord `json:"items"`
	Offset     int                 `json:"offset"`
	Limit      int                 `json:"limit"`
}

// CalculateTariffDTO is the request body of a tariff calculation.
type CalculateTariffDTO struct {
	HTSCode            string          `json:"htsCode"`
	OriginCountry      string          `json:"originCountry"`
	DestinationCountry string          `json:"destinationCountry"`
	ProductValue       decimal.Decimal `json:"productValue"`
	Quantity           int64           `json:"quantity"`
	Currency           string          `json:"currency"`
	Date               string          `json:"date"`      // optional, YYYY-MM-DD
	StartDate          string          `json:"startDate"` // optional, requires EndDate
	EndDate            string          `json:"endDate"`
}

// CalculationResponseDTO is a calculation result with the id of its stored record.
type CalculationResponseDTO struct {
	CalculationID *uuid.UUID `json:"calculationId,omitempty"`
	ReportURL     string     `json:"reportUrl,omitempty"`
	*CalculationResult
}

// ComputeDutyDTO is the request body of a standalone duty computation.
type ComputeDutyDTO struct {
	AdValoremRate decimal.NullDecimal `json:"adValoremRate"`
	SpecificRate  decimal.NullDecimal `json:"specificRate"`
	ProductValue  decimal.Decimal     `json:"productValue"`
	Quantity      int64               `json:"quantity"`
}

// ComputeDutyResponseDTO is the response of a standalone duty computation.
type ComputeDutyResponseDTO struct {
	TariffAmount decimal.Decimal `json:"tariffAmount"`
}

// ConversionResponseDTO is the response of a currency conversion.
type ConversionResponseDTO struct {
	Amount          decimal.Decimal `json:"amount"`
	FromCurrency    string          `json:"fromCurrency"`
	ToCurrency      string          `json:"toCurrency"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	Converted       bool            `json:"converted"`
	Warnings        []Warning       `json:"warnings,omitempty"`
}
