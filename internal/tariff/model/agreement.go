package model

// TradeAgreement is a trade program under which preferential rates apply.
type TradeAgreement struct {
	BaseModel
	Code         string `gorm:"type:varchar(50);column:code;not null;unique" json:"code"`
	Name         string `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Multilateral bool   `gorm:"type:boolean;column:multilateral;not null;default:false" json:"multilateral"`
	Validity

	Members []AgreementMember `gorm:"foreignKey:AgreementCode;references:Code" json:"members,omitempty"`
}

func (a *TradeAgreement) TableName() string {
	return "trade_agreements"
}

// Ref returns the agreement reference used to tag preferential rates.
func (a *TradeAgreement) Ref() AgreementRef {
	return AgreementRef{Code: a.Code, Name: a.Name}
}

// AgreementMember records a country's participation window in an agreement.
type AgreementMember struct {
	BaseModel
	AgreementCode string `gorm:"type:varchar(50);column:agreement_code;not null;index" json:"agreementCode"`
	CountryCode   string `gorm:"type:varchar(3);column:country_code;not null;index" json:"countryCode"`
	Validity
}

func (m *AgreementMember) TableName() string {
	return "agreement_members"
}
