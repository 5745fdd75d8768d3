package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceTolerance is the absolute gap below which issue and received special
// prices still count as matched. The default is zero: exact decimal equality.
//
// Set via env:
// - RECON_PRICE_TOLERANCE=0.01
func PriceTolerance() decimal.Decimal {
	v := strings.TrimSpace(os.Getenv("RECON_PRICE_TOLERANCE"))
	if v == "" {
		return decimal.Zero
	}
	tol, err := decimal.NewFromString(v)
	if err != nil || tol.IsNegative() {
		return decimal.Zero
	}
	return tol
}

// PreviewRowLimit caps the mismatch preview returned by /validate.
//
// Set via env:
// - RECON_PREVIEW_LIMIT=100
func PreviewRowLimit() int {
	limit := 100
	if v := strings.TrimSpace(os.Getenv("RECON_PREVIEW_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}
