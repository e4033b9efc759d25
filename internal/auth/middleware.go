package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AuthContextKey is the key for storing AuthContext in request context
	AuthContextKey ContextKey = "authContext"
)

// Middleware creates an HTTP middleware that identifies the calling trader.
// It extracts the bearer token, resolves the trader ID and loads the trader
// profile. Requests without a usable token proceed without auth context, so
// calculation endpoints stay public and history endpoints use RequireAuth.
func Middleware(authService *AuthService, tokenExtractor *TokenExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			traderID, err := tokenExtractor.ExtractTraderIDFromHeader(authHeader)
			if err != nil {
				slog.Warn("failed to extract trader ID from token",
					"error", err,
					"auth_header_length", len(authHeader),
				)
				next.ServeHTTP(w, r)
				return
			}

			profile, err := authService.GetTraderProfile(r.Context(), traderID)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					slog.Warn("failed to get trader profile from database",
						"trader_id", traderID,
						"error", err,
					)
					next.ServeHTTP(w, r)
					return
				}
				// Trader has no stored preferences yet
				profile = &TraderProfile{TraderID: traderID}
			}

			ctx := context.WithValue(r.Context(), AuthContextKey, &AuthContext{TraderProfile: profile})
			slog.Debug("auth context injected successfully", "trader_id", traderID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthContext extracts the AuthContext from a request context.
// Returns nil if no auth context is available (request had no valid token).
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// RequireAuth returns a gin middleware that rejects requests without auth context
// with 401 Unauthorized. Middleware must run before it.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAuthContext(c.Request.Context()) == nil {
			slog.Warn("authentication required but not provided",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
			return
		}
		c.Next()
	}
}
