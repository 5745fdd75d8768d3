package utils

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts a string to a decimal, rejecting empty input.
func ParseDecimal(value string) (decimal.Decimal, error) {
	// Remove any whitespace and check for empty strings
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	// Convert string to decimal
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// DecimalOrZero coerces a cell to a decimal, treating empty or unparsable
// values as zero. Ledger normalization depends on this: a bad quantity cell
// becomes 0, it never drops the row.
func DecimalOrZero(value string) decimal.Decimal {
	dec, err := ParseDecimal(value)
	if err != nil {
		return decimal.Zero
	}
	return dec
}

// SplitAndTrim splits a comma-separated value, dropping empty parts.
func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
