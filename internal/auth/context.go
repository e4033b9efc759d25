package auth

import (
	"encoding/json"
	"fmt"
	"time"
)

// TraderProfile represents the stored preferences of a calling trader.
// Missing preferences fall back to the request or service defaults.
type TraderProfile struct {
	TraderID             string          `gorm:"type:varchar(100);column:trader_id;primaryKey;not null" json:"traderId"`
	PreferredCurrency    *string         `gorm:"type:varchar(3);column:preferred_currency" json:"preferredCurrency,omitempty"`
	DefaultOriginCountry *string         `gorm:"type:varchar(3);column:default_origin_country" json:"defaultOriginCountry,omitempty"`
	Attributes           json.RawMessage `gorm:"type:jsonb;column:attributes;serializer:json" json:"attributes,omitempty"`
	UpdatedAt            time.Time       `gorm:"type:timestamptz;column:updated_at;not null" json:"updatedAt"`
}

// TableName specifies the database table name for TraderProfile
func (t *TraderProfile) TableName() string {
	return "trader_profiles"
}

// AuthContext represents the authentication context available in a request.
// This is a transient context that is injected into the request by the auth middleware.
type AuthContext struct {
	*TraderProfile
}

// Currency returns the preferred currency, or fallback when none is stored.
func (ac *AuthContext) Currency(fallback string) string {
	if ac == nil || ac.TraderProfile == nil || ac.PreferredCurrency == nil || *ac.PreferredCurrency == "" {
		return fallback
	}
	return *ac.PreferredCurrency
}

// OriginCountry returns the default origin country, or fallback when none is stored.
func (ac *AuthContext) OriginCountry(fallback string) string {
	if ac == nil || ac.TraderProfile == nil || ac.DefaultOriginCountry == nil || *ac.DefaultOriginCountry == "" {
		return fallback
	}
	return *ac.DefaultOriginCountry
}

// GetAttributesMap returns the free-form profile attributes as a map.
// If no attributes exist, it returns an empty map.
func (ac *AuthContext) GetAttributesMap() (map[string]any, error) {
	attributes := make(map[string]any)
	if ac == nil || ac.TraderProfile == nil || len(ac.Attributes) == 0 {
		return attributes, nil
	}

	if err := json.Unmarshal(ac.Attributes, &attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trader attributes: %w", err)
	}

	return attributes, nil
}
