package auth

import (
	"fmt"
	"strings"
)

const bearerPrefix = "Bearer "

// TokenExtractor resolves the calling trader from an Authorization header.
// Tokens are opaque trader IDs; signature verification belongs here once
// tokens are issued by an identity provider.
type TokenExtractor struct{}

// NewTokenExtractor creates a new TokenExtractor
func NewTokenExtractor() *TokenExtractor {
	return &TokenExtractor{}
}

// ExtractTraderIDFromHeader returns the trader ID carried by a "Bearer <token>" header.
func (te *TokenExtractor) ExtractTraderIDFromHeader(authHeader string) (string, error) {
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", fmt.Errorf("authorization header must use the Bearer scheme")
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", fmt.Errorf("bearer token is empty")
	}
	if len(token) > 100 {
		return "", fmt.Errorf("bearer token exceeds 100 characters")
	}
	return token, nil
}
