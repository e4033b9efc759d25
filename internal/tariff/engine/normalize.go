package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

const productCodeLength = 8

// productNotFoundMessage is the result error for unknown and blank HTS codes.
const productNotFoundMessage = "HTS code not found"

// NormalizeProductCode strips separators, upper-cases and checks the length of an HTS code.
// A blank code is reported as not found rather than malformed.
func NormalizeProductCode(raw string) (model.ProductCode, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &InputError{Err: ErrProductNotFound, Message: productNotFoundMessage}
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		}
	}

	code := b.String()
	if len(code) != productCodeLength {
		return "", &InputError{
			Err:     ErrInvalidFormat,
			Message: fmt.Sprintf("Invalid HTS code format: %q must contain exactly %d alphanumeric characters", raw, productCodeLength),
		}
	}
	return model.ProductCode(code), nil
}

// NormalizeOptionalText trims whitespace and maps an empty result to nil.
func NormalizeOptionalText(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// NormalizeCountry returns the trimmed upper-case country code.
func NormalizeCountry(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeCurrency returns the trimmed upper-case currency code.
func NormalizeCurrency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateAmounts rejects negative product values and quantities.
func ValidateAmounts(value decimal.Decimal, quantity int64) error {
	if value.IsNegative() {
		return invalidInput("Product value must be non-negative")
	}
	if quantity < 0 {
		return invalidInput("Quantity must be non-negative")
	}
	return nil
}
