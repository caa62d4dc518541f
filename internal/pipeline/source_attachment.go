package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pricecase/internal"
	"pricecase/internal/extract"
)

// AttachmentSource reads spreadsheets and PDFs. A structured table is
// preferred; its gaps are filled from the plain rendering of the same file.
// Files without a usable table fall back to plain-text extraction.
type AttachmentSource struct {
	Logger *slog.Logger
}

func (s *AttachmentSource) Name() string { return "attachment" }

func (s *AttachmentSource) Extract(_ context.Context, email internal.EmailItem) ([]internal.ExtractedRecord, error) {
	log := loggerOrDefault(s.Logger)

	var out []internal.ExtractedRecord
	for _, att := range email.Attachments {
		rec, err := extractAttachment(att)
		if err != nil {
			log.Warn("attachment skipped", "message_id", email.MessageID, "attachment", att.Name, "err", err)
			continue
		}
		out = append(out, keep(rec)...)
	}
	return out, nil
}

func extractAttachment(att internal.Attachment) (rec internal.ExtractedRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic reading %s: %v", att.Name, r)
		}
	}()

	switch {
	case extract.IsSpreadsheet(att.Name, att.ContentType):
		return twoTier(att.Name, "structured",
			func() ([]extract.Grid, error) { return extract.XLSXGrids(att.Content) },
			func() (string, error) { return extract.XLSXText(att.Content) },
			extract.SheetFields, extract.SheetHeaderScanRows)
	case extract.IsPDF(att.Name, att.ContentType):
		return twoTier(att.Name, "structured PDF table",
			func() ([]extract.Grid, error) { return extract.PDFGrids(att.Content) },
			func() (string, error) { return extract.PDFText(att.Content) },
			extract.TableFields, extract.TableHeaderScanRows)
	}
	return internal.ExtractedRecord{}, nil
}

func twoTier(
	name, structuredTag string,
	grids func() ([]extract.Grid, error),
	text func() (string, error),
	fields []extract.Field,
	scanRows int,
) (internal.ExtractedRecord, error) {
	label := "Attachment: " + name
	plain, textErr := text()

	if g, err := grids(); err == nil {
		tables := extract.ExtractTables(g, fields, scanRows)
		rec := extract.TablesRecord(tables, internal.SourceAttachment, fmt.Sprintf("%s (%s)", label, structuredTag))
		if len(rec.EANs) > 0 {
			internal.FillMissing(&rec, extract.ExtractDocumentFields(tableMetadata(tables)))
			if textErr == nil {
				internal.FillMissing(&rec, extract.ExtractDocumentFields(plain))
			}
			return rec, nil
		}
	}

	if textErr != nil {
		return internal.ExtractedRecord{}, textErr
	}
	return extract.ExtractFields(plain, internal.SourceAttachment, label), nil
}

func tableMetadata(tables []extract.Table) string {
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		if t.Metadata != "" {
			parts = append(parts, t.Metadata)
		}
	}
	return strings.Join(parts, "\n")
}
