package pipeline

import (
	"context"
	"log/slog"

	"pricecase/internal"
)

// Adapter turns one email into zero or more records of a single source kind.
type Adapter interface {
	Name() string
	Extract(ctx context.Context, email internal.EmailItem) ([]internal.ExtractedRecord, error)
}

// TextRecognizer returns the combined OCR text of every image in an email,
// each segment headed by its origin.
type TextRecognizer interface {
	RecognizeEmail(ctx context.Context, email internal.EmailItem) (string, error)
}

// keep drops records that carry nothing.
func keep(records ...internal.ExtractedRecord) []internal.ExtractedRecord {
	out := make([]internal.ExtractedRecord, 0, len(records))
	for _, rec := range records {
		if !rec.IsEmpty() {
			out = append(out, rec)
		}
	}
	return out
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
