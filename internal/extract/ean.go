package extract

import (
	"strconv"
	"strings"
	"time"
)

// IsValidEAN accepts 8 and 13 digit codes with a correct check digit,
// rejecting repeated-digit runs and 8-digit strings shaped like dates.
func IsValidEAN(code string) bool {
	if len(code) != 8 && len(code) != 13 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	if strings.Count(code, code[:1]) == len(code) {
		return false
	}
	if len(code) == 8 && looksLikeDate(code) {
		return false
	}
	return validCheckDigit(code)
}

func validCheckDigit(code string) bool {
	n := len(code)
	sum := 0
	for i := 0; i < n-1; i++ {
		digit := int(code[i] - '0')
		weight := 1
		if (n == 8 && i%2 == 0) || (n == 13 && i%2 == 1) {
			weight = 3
		}
		sum += digit * weight
	}
	return (10-sum%10)%10 == int(code[n-1]-'0')
}

// looksLikeDate matches YYYYMMDD and DDMMYYYY with a year in 1990-2099.
func looksLikeDate(code string) bool {
	return isCalendarDate(code[0:4], code[4:6], code[6:8]) ||
		isCalendarDate(code[4:8], code[2:4], code[0:2])
}

func isCalendarDate(y, m, d string) bool {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if year < 1990 || year > 2099 {
		return false
	}
	_, ok := makeDate(year, month, day)
	return ok
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
