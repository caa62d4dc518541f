package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"pricecase/internal"
	"pricecase/internal/assist"
	"pricecase/internal/extract"
)

const ocrLabel = "OCR from images"

// OCRSource extracts fields from recognized image text. When the text has
// no identifiers and a Filler is set, the model is asked to fill the gaps.
type OCRSource struct {
	Recognizer TextRecognizer
	Filler     assist.GapFiller
	Logger     *slog.Logger
}

func (s *OCRSource) Name() string { return "ocr" }

func (s *OCRSource) Extract(ctx context.Context, email internal.EmailItem) ([]internal.ExtractedRecord, error) {
	if s.Recognizer == nil {
		return nil, nil
	}
	log := loggerOrDefault(s.Logger)

	text, err := s.Recognizer.RecognizeEmail(ctx, email)
	if err != nil {
		log.Warn("ocr failed", "message_id", email.MessageID, "err", err)
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	rec := extract.ExtractFields(text, internal.SourceOCR, ocrLabel)
	if len(rec.EANs) == 0 && s.Filler != nil {
		filled, err := assist.Fill(ctx, s.Filler, text, internal.SourceOCR, ocrLabel)
		if err != nil {
			log.Warn("gap filler failed", "message_id", email.MessageID, "err", err)
		} else {
			internal.FillMissing(&rec, filled)
			log.Debug("gap filler applied", "message_id", email.MessageID, "eans", len(filled.EANs))
		}
	}
	return keep(rec), nil
}
