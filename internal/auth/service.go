package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

// AuthService provides business logic for authentication and trader profile operations.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new AuthService instance
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{
		db: db,
	}
}

// GetTraderProfile retrieves the trader profile for a given trader ID.
// Returns gorm.ErrRecordNotFound when the trader has no profile yet.
func (as *AuthService) GetTraderProfile(ctx context.Context, traderID string) (*TraderProfile, error) {
	if traderID == "" {
		return nil, fmt.Errorf("trader ID is empty")
	}

	var profile TraderProfile
	result := as.db.WithContext(ctx).Where("trader_id = ?", traderID).First(&profile)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.DebugContext(ctx, "trader profile not found", "trader_id", traderID)
			return nil, result.Error
		}
		slog.ErrorContext(ctx, "failed to fetch trader profile from database",
			"trader_id", traderID,
			"error", result.Error,
		)
		return nil, fmt.Errorf("failed to fetch trader profile: %w", result.Error)
	}

	return &profile, nil
}

// UpsertTraderProfile creates or replaces the profile of a trader.
// Currency and country codes are stored upper-cased.
func (as *AuthService) UpsertTraderProfile(ctx context.Context, profile *TraderProfile) error {
	if profile == nil || profile.TraderID == "" {
		return fmt.Errorf("trader ID is empty")
	}

	if len(profile.Attributes) > 0 {
		var jsonData any
		if err := json.Unmarshal(profile.Attributes, &jsonData); err != nil {
			return fmt.Errorf("invalid JSON in trader attributes: %w", err)
		}
	}

	profile.PreferredCurrency = upperOrNil(profile.PreferredCurrency)
	profile.DefaultOriginCountry = upperOrNil(profile.DefaultOriginCountry)

	if result := as.db.WithContext(ctx).Save(profile); result.Error != nil {
		slog.ErrorContext(ctx, "failed to upsert trader profile",
			"trader_id", profile.TraderID,
			"error", result.Error,
		)
		return fmt.Errorf("failed to upsert trader profile: %w", result.Error)
	}

	slog.DebugContext(ctx, "trader profile upserted successfully", "trader_id", profile.TraderID)
	return nil
}

func upperOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.ToUpper(strings.TrimSpace(*value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
