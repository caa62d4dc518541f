package extract

import (
	"strings"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFindDateByKeyword(t *testing.T) {
	got := FindDateByKeyword("Delivery Date: 2024-01-15", "delivery")
	if got == nil || !got.Equal(day(2024, 1, 15)) {
		t.Fatalf("got %v", got)
	}
	if got := FindDateByKeyword("No date here", "delivery"); got != nil {
		t.Fatalf("got %v", got)
	}
}

func TestFindDateByKeywordWindow(t *testing.T) {
	text := "Delivery: " + strings.Repeat("x", 60) + " 2024-01-15"
	if got := FindDateByKeyword(text, DeliveryKeywords...); got != nil {
		t.Fatalf("date outside window found: %v", got)
	}
	got := FindDateByKeyword("DATUM DOSTAVE / dostava: 03.02.2024", DeliveryKeywords...)
	if got == nil || !got.Equal(day(2024, 2, 3)) {
		t.Fatalf("got %v", got)
	}
}

func TestExtractDates(t *testing.T) {
	dates := ExtractDates("on 15 Jan 2024, then 2024/02/03, not 31.02.2024, and 05-03-2024 or 7 September 2024")
	want := []time.Time{day(2024, 1, 15), day(2024, 2, 3), day(2024, 3, 5), day(2024, 9, 7)}
	if len(dates) != len(want) {
		t.Fatalf("dates=%v", dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Fatalf("dates[%d]=%v want %v", i, dates[i], want[i])
		}
	}
}

func TestParseDate(t *testing.T) {
	if got := ParseDate("2024-01-15"); got == nil || !got.Equal(day(2024, 1, 15)) {
		t.Fatalf("got %v", got)
	}
	if got := ParseDate("15.01.2024"); got == nil || !got.Equal(day(2024, 1, 15)) {
		t.Fatalf("got %v", got)
	}
	if got := ParseDate("soon"); got != nil {
		t.Fatalf("got %v", got)
	}
}
