package utils

import (
	"fmt"
	"strconv"
)

const pageSizeDefault = 20
const pageSizeMax = 100

// GetPaginationParams resolves the offset and limit of a list query.
// Missing or non-positive values fall back to the first page; the limit is capped at pageSizeMax.
func GetPaginationParams(offset *int, limit *int) (int, int) {
	finalOffset := 0
	finalLimit := pageSizeDefault

	if offset != nil && *offset >= 0 {
		finalOffset = *offset
	}

	if limit != nil && *limit > 0 {
		finalLimit = min(*limit, pageSizeMax)
	}

	return finalOffset, finalLimit
}

// ParseOptionalInt parses a query parameter that may be absent.
// An empty value yields nil.
func ParseOptionalInt(name, raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid '%s' query parameter, must be an integer", name)
	}
	return &value, nil
}
