package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	reISODate   = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	reDMYDate   = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})\b`)
	reNamedDate = regexp.MustCompile(`(?i)\b(\d{1,2})\.?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+(\d{4})\b`)
)

var monthAbbrev = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// Keyword sets used to anchor the three document dates.
var (
	DeliveryKeywords = []string{"delivery", "dostava", "dobava"}
	OrderKeywords    = []string{"order", "naročilo", "naročilnica"}
	DocumentKeywords = []string{"document", "created", "date", "datum", "dokument"}
)

const keywordWindow = 50

type dateMatch struct {
	start int
	end   int
	date  time.Time
}

// ExtractDates returns every parseable date in text order. Spans that fail
// calendar validation are dropped.
func ExtractDates(text string) []time.Time {
	var matches []dateMatch
	for _, m := range reISODate.FindAllStringSubmatchIndex(text, -1) {
		if d, ok := dateFromParts(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]); ok {
			matches = append(matches, dateMatch{start: m[0], end: m[1], date: d})
		}
	}
	for _, m := range reDMYDate.FindAllStringSubmatchIndex(text, -1) {
		if d, ok := dateFromParts(text[m[6]:m[7]], text[m[4]:m[5]], text[m[2]:m[3]]); ok {
			matches = append(matches, dateMatch{start: m[0], end: m[1], date: d})
		}
	}
	for _, m := range reNamedDate.FindAllStringSubmatchIndex(text, -1) {
		month := monthAbbrev[strings.ToLower(text[m[4]:m[5]])]
		if d, ok := dateFromParts(text[m[6]:m[7]], strconv.Itoa(month), text[m[2]:m[3]]); ok {
			matches = append(matches, dateMatch{start: m[0], end: m[1], date: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	out := make([]time.Time, 0, len(matches))
	lastEnd := -1
	for _, m := range matches {
		if m.start < lastEnd {
			continue
		}
		out = append(out, m.date)
		lastEnd = m.end
	}
	return out
}

// FindDateByKeyword looks for the earliest keyword occurrence and returns the
// first date within the next 50 characters, or nil.
func FindDateByKeyword(text string, keywords ...string) *time.Time {
	if len(keywords) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	re := regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)\s*:?\s*`)

	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	window := []rune(text[loc[1]:])
	if len(window) > keywordWindow {
		window = window[:keywordWindow]
	}
	dates := ExtractDates(string(window))
	if len(dates) == 0 {
		return nil
	}
	return &dates[0]
}

func dateFromParts(y, m, d string) (time.Time, bool) {
	year, err := strconv.Atoi(y)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(d)
	if err != nil {
		return time.Time{}, false
	}
	return makeDate(year, month, day)
}

// ParseDate reads one loosely formatted date value, trying ISO first.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	if dates := ExtractDates(value); len(dates) > 0 {
		return &dates[0]
	}
	return nil
}
