// Package csvio implements the typed CSV file contracts of the points
// engine: canonical numeric rendering, streaming consumption of the
// append-only block logs, and encode/decode of the closed row schemas.
package csvio

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatFloat renders a value as a plain decimal string with trailing
// zeros stripped and no scientific notation, so output files stay
// diffable and reproducible byte for byte.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		// Never expected in a valid run, but must not panic the encoder.
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// ParseFloat parses a numeric CSV field.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
