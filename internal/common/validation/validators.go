// internal/common/validation/validators.go
package validation

import (
	"fmt"
	"math"
	"strings"

	"loyalty-agent/internal/common/errors"
)

// MaxCustomerIDLength bounds identifiers accepted from callers.
const MaxCustomerIDLength = 50

// ValidateCustomerID trims id and rejects empty or overlong identifiers.
func ValidateCustomerID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewValidationError("customer_id", "Customer ID cannot be empty")
	}
	if len(id) > MaxCustomerIDLength {
		return "", errors.NewValidationError("customer_id",
			fmt.Sprintf("Customer ID too long (max %d characters)", MaxCustomerIDLength))
	}
	return id, nil
}

// ValidateNonNegative rejects negative and non-finite numbers.
func ValidateNonNegative(value float64, field string) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.NewValidationError(field, fmt.Sprintf("%s must be a number", field))
	}
	if value < 0 {
		return 0, errors.NewValidationError(field, fmt.Sprintf("%s must be non-negative", field))
	}
	return value, nil
}

// ValidateProbability accepts values in [0, 1].
func ValidateProbability(value float64, field string) (float64, error) {
	v, err := ValidateNonNegative(value, field)
	if err != nil {
		return 0, err
	}
	if v > 1.0 {
		return 0, errors.NewValidationError(field, fmt.Sprintf("%s must be between 0 and 1", field))
	}
	return v, nil
}

// ValidateLimit requires a strictly positive limit.
func ValidateLimit(limit int) (int, error) {
	if limit <= 0 {
		return 0, errors.NewValidationError("limit", "Limit must be positive")
	}
	return limit, nil
}

// ValidateCustomerList validates every id and rejects an empty list.
func ValidateCustomerList(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, errors.NewValidationError("customer_ids", "Customer ID list cannot be empty")
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		v, err := ValidateCustomerID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
