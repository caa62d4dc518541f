// Package connectors reads unread messages from a mailbox and acknowledges
// the ones that were handled.
package connectors

import (
	"context"
	"time"

	"pricecase/internal"
)

// MailConnector is one mailbox provider. ListUnread covers the calendar
// days from..to inclusive; FetchEmail must not change the read state.
type MailConnector interface {
	ListUnread(ctx context.Context, from, to time.Time) ([]internal.MessageRef, error)
	FetchEmail(ctx context.Context, ref internal.MessageRef) (internal.EmailItem, error)
	MarkRead(ctx context.Context, ref internal.MessageRef) error
}

// DayBounds returns the first instant of from and the first instant after
// to, both in from's location.
func DayBounds(from, to time.Time) (time.Time, time.Time) {
	loc := from.Location()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	to = to.In(loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return start, end
}
