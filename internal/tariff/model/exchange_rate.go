package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate stores the conversion rate between two currencies for a specific date.
type ExchangeRate struct {
	BaseModel
	FromCurrency string          `gorm:"type:varchar(3);column:from_currency;not null;index:idx_exchange_pair" json:"fromCurrency"`
	ToCurrency   string          `gorm:"type:varchar(3);column:to_currency;not null;index:idx_exchange_pair" json:"toCurrency"`
	Rate         decimal.Decimal `gorm:"type:numeric(18,8);column:rate;not null" json:"rate"`
	RateDate     time.Time       `gorm:"type:date;column:rate_date;not null;index" json:"rateDate"`
}

func (e *ExchangeRate) TableName() string {
	return "exchange_rates"
}
