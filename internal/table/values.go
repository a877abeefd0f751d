package table

import (
	"math"
	"strconv"
	"strings"
)

var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
}

// IsMissing reports whether raw is a missing-value marker.
func IsMissing(raw string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// ParseNumber parses a numeric cell. dec and thou select the decimal and
// thousands separators; a zero dec auto-detects per value. With no thousands
// separator set, another separator is only accepted between three-digit
// groups, so "1,5" under a '.' decimal is rejected instead of read as 15.
// Infinities are rejected.
func ParseNumber(s string, dec, thou rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep == dec || !strings.ContainsRune(raw, sep) {
				continue
			}
			if !groupedBy(raw, sep, dec) {
				return 0, false
			}
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// groupedBy reports whether sep only splits the integer part of raw into
// digit groups of three, as in 1,234,567.
func groupedBy(raw string, sep, dec rune) bool {
	intPart, frac := raw, ""
	if i := strings.IndexRune(raw, dec); i >= 0 {
		intPart, frac = raw[:i], raw[i:]
	}
	if strings.ContainsRune(frac, sep) {
		return false
	}
	groups := strings.Split(strings.TrimLeft(intPart, "+-"), string(sep))
	for i, g := range groups {
		if i == 0 {
			if g == "" || len(g) > 3 {
				return false
			}
			continue
		}
		if len(g) != 3 {
			return false
		}
	}
	return true
}
