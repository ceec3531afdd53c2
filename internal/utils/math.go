package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LamportsPerSOL native unit scale
const LamportsPerSOL = 1_000_000_000

// LamportsToSOL converts for display; precision loss above 2^53 lamports is acceptable there.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// FormatSOL renders lamports as a fixed nine-decimal SOL string.
func FormatSOL(lamports uint64) string {
	return fmt.Sprintf("%d.%09d", lamports/LamportsPerSOL, lamports%LamportsPerSOL)
}

// ParseSOL parses a decimal SOL amount exactly, rejecting more than nine
// fractional digits.
func ParseSOL(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if len(frac) > 9 {
		return 0, fmt.Errorf("amount %q has more than 9 decimals", s)
	}
	var w uint64
	if whole != "" {
		var err error
		if w, err = strconv.ParseUint(whole, 10, 64); err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	var f uint64
	if frac != "" {
		var err error
		if f, err = strconv.ParseUint(frac+strings.Repeat("0", 9-len(frac)), 10, 64); err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	if w > (math.MaxUint64-f)/LamportsPerSOL {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return w*LamportsPerSOL + f, nil
}
