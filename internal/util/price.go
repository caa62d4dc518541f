package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyReplacer = strings.NewReplacer("€", "", "$", "", "£", "", " ", "", "\u00a0", "", "\t", "")
	currencyCode     = regexp.MustCompile(`(?i)(eur|usd|gbp)`)
)

// ParsePrice parses a single price cell or token. Currency markers are
// dropped; when both separators are present the dot groups thousands and
// the comma is the decimal point, a lone comma is a decimal point. Only
// strictly positive finite values are accepted.
func ParsePrice(input string) (float64, bool) {
	s := currencyReplacer.Replace(strings.TrimSpace(input))
	s = currencyCode.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(normalizeNumericToken(s), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

func normalizeNumericToken(token string) string {
	hasComma := strings.Contains(token, ",")
	hasDot := strings.Contains(token, ".")
	switch {
	case hasComma && hasDot:
		return strings.ReplaceAll(strings.ReplaceAll(token, ".", ""), ",", ".")
	case hasComma:
		return strings.ReplaceAll(token, ",", ".")
	default:
		return token
	}
}
