package util

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeCell prepares a table cell for header matching: NFKC, lower case,
// collapsed whitespace and no trailing colon.
func NormalizeCell(input string) string {
	s := norm.NFKC.String(input)
	s = strings.ToLower(s)
	s = reSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}

func NormalizeSpaces(input string) string {
	s := strings.ReplaceAll(input, "\u00a0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// NormalizeLines collapses spaces inside every line and drops blank lines.
func NormalizeLines(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	lines := strings.Split(input, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = NormalizeSpaces(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func DigitsOnly(input string) string {
	out := strings.Builder{}
	for _, r := range input {
		if r >= '0' && r <= '9' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// Words splits on anything that is not a letter or digit.
func Words(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func HasDigit(input string) bool {
	for _, r := range input {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func TitleCase(input string) string {
	return cases.Title(language.Und).String(NormalizeSpaces(input))
}

func StringPtr(v string) *string {
	return &v
}

func FloatPtr(v float64) *float64 {
	return &v
}

func TimePtr(v time.Time) *time.Time {
	return &v
}

func DerefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// FormatDate renders an optional date as YYYY-MM-DD, empty when absent.
func FormatDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}
