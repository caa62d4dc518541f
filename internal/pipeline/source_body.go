package pipeline

import (
	"context"
	"strings"

	"pricecase/internal"
	"pricecase/internal/extract"
)

const (
	bodyLabel      = "Email body"
	bodyTableLabel = "Email body (HTML table)"
)

// BodySource reads the message body, HTML tables first.
type BodySource struct{}

func (s *BodySource) Name() string { return "body" }

func (s *BodySource) Extract(_ context.Context, email internal.EmailItem) ([]internal.ExtractedRecord, error) {
	text := email.BodyText
	if strings.TrimSpace(text) == "" && email.BodyHTML != "" {
		text = extract.StripHTML(email.BodyHTML)
	}

	if extract.HasTable(email.BodyHTML) {
		if grids, err := extract.HTMLGrids(email.BodyHTML); err == nil {
			tables := extract.ExtractTables(grids, extract.TableFields, extract.TableHeaderScanRows)
			rec := extract.TablesRecord(tables, internal.SourceBody, bodyTableLabel)
			if len(rec.EANs) > 0 {
				internal.FillMissing(&rec, extract.ExtractDocumentFields(text))
				return keep(rec), nil
			}
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return keep(extract.ExtractFields(text, internal.SourceBody, bodyLabel)), nil
}
