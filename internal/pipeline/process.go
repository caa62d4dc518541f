package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pricecase/internal"
	"pricecase/internal/assist"
	"pricecase/internal/merge"
)

// Processor runs one email through every adapter, merges the records,
// applies the date gate and builds the case rows.
type Processor struct {
	Adapters []Adapter
	Logger   *slog.Logger
}

// NewProcessor wires the default adapters. recognizer and filler may be nil.
func NewProcessor(recognizer TextRecognizer, filler assist.GapFiller, logger *slog.Logger) *Processor {
	var adapters []Adapter
	if recognizer != nil {
		adapters = append(adapters, &OCRSource{Recognizer: recognizer, Filler: filler, Logger: logger})
	}
	adapters = append(adapters, &AttachmentSource{Logger: logger}, &BodySource{})
	return &Processor{Adapters: adapters, Logger: logger}
}

// Process never fails: errors and panics become a skipped result. A
// processed email is marked for acknowledgement unless dryRun is set.
func (p *Processor) Process(ctx context.Context, email internal.EmailItem, dryRun bool) (result internal.ProcessResult) {
	log := loggerOrDefault(p.Logger).With("message_id", email.MessageID)
	result = internal.ProcessResult{
		MessageID:  email.MessageID,
		Sender:     email.Sender,
		Subject:    email.Subject,
		ReceivedAt: email.ReceivedAt,
	}

	defer func() {
		if r := recover(); r != nil {
			result = skipped(result, fmt.Errorf("panic: %v", r))
			log.Error("email processing panicked", "err", result.ErrorMessage)
		}
	}()

	rows, err := p.caseRows(ctx, email)
	if err != nil {
		result = skipped(result, err)
		log.Warn("email skipped", "status", result.Status, "error_type", result.ErrorType, "err", err)
		return result
	}

	result.Status = internal.StatusProcessed
	result.CaseRows = rows
	result.MarkedAsRead = !dryRun
	log.Info("email processed", "case_rows", len(rows))
	return result
}

// Merge runs the adapters and merges their records.
func (p *Processor) Merge(ctx context.Context, email internal.EmailItem) (internal.MergedRecord, error) {
	var records []internal.ExtractedRecord
	for _, adapter := range p.Adapters {
		recs, err := adapter.Extract(ctx, email)
		if err != nil {
			return internal.MergedRecord{}, fmt.Errorf("%s source: %w", adapter.Name(), err)
		}
		records = append(records, recs...)
	}
	return merge.Merge(records), nil
}

func (p *Processor) caseRows(ctx context.Context, email internal.EmailItem) ([]internal.CaseRow, error) {
	merged, err := p.Merge(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := ValidateMandatoryDates(merged); err != nil {
		return nil, err
	}
	return GenerateCaseRows(merged, email), nil
}

func skipped(result internal.ProcessResult, err error) internal.ProcessResult {
	result.CaseRows = nil
	result.MarkedAsRead = false
	result.ErrorMessage = err.Error()

	var business *BusinessError
	if errors.As(err, &business) {
		result.Status = internal.StatusSkippedBusiness
		result.ErrorType = internal.ErrorBusiness
		return result
	}
	result.Status = internal.StatusSkippedTechnical
	result.ErrorType = internal.ErrorTechnical
	return result
}
