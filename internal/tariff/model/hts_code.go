package model

// ProductCode is a normalized 8 character HTS classification key.
// Values are only produced by engine.NormalizeProductCode.
type ProductCode string

func (c ProductCode) String() string {
	return string(c)
}

// HTSCode represents a Harmonized Tariff Schedule subheading known to the rate store.
type HTSCode struct {
	BaseModel
	Code        string  `gorm:"type:varchar(8);column:hts_code;not null;unique" json:"htsCode"` // Normalized 8 character code
	Description string  `gorm:"type:text;column:description" json:"description"`               // Description of the subheading
	Category    string  `gorm:"type:text;column:category" json:"category"`                     // Chapter or section label
	Unit        *string `gorm:"type:varchar(20);column:unit" json:"unit,omitempty"`            // Quantity unit code, e.g. KG or NO
}

func (h *HTSCode) TableName() string {
	return "hts_codes"
}

// HTSCodeFilter will be used when querying as batch
type HTSCodeFilter struct {
	HTSCodeStartsWith *string `json:"htsCodeStartsWith,omitempty"`
	Offset            *int    `json:"offset,omitempty"`
	Limit             *int    `json:"limit,omitempty"`
}

// HTSCodeListResult represents the result of querying HTS codes with pagination
type HTSCodeListResult struct {
	TotalCount int64     `json:"totalCount"`
	HTSCodes   []HTSCode `json:"htsCodes"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}
