package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pricecase/internal"
)

func TestAttachmentSourceStructuredSheet(t *testing.T) {
	content := workbook(t, [][]any{
		{"Delivery date: 2024-01-15"},
		{"EAN", "Nabavna cena", "Trgovina"},
		{"4006381333931", "12,50", "lj01"},
		{"not an ean", "3,00", "lj02"},
	})
	email := internal.EmailItem{Attachments: []internal.Attachment{{Name: "prices.xlsx", ContentType: xlsxType, Content: content}}}

	recs, err := (&AttachmentSource{}).Extract(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, internal.SourceAttachment, rec.Source)
	assert.Equal(t, "Attachment: prices.xlsx (structured)", rec.Label)
	assert.Equal(t, []string{"4006381333931"}, rec.EANs)
	assert.Equal(t, 12.50, rec.SupplierPrices["4006381333931"])
	assert.Equal(t, "lj01", rec.Stores["4006381333931"])
	require.NotNil(t, rec.DeliveryDate)
	assert.True(t, rec.DeliveryDate.Equal(day(2024, 1, 15)))
}

func TestAttachmentSourceStoreOnlySheet(t *testing.T) {
	content := workbook(t, [][]any{
		{"EAN", "Trgovina"},
		{"4006381333931", "lj01"},
		{"96385074", "mb02"},
	})
	email := internal.EmailItem{Attachments: []internal.Attachment{{Name: "stores.xlsx", ContentType: xlsxType, Content: content}}}

	recs, err := (&AttachmentSource{}).Extract(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Attachment: stores.xlsx (structured)", recs[0].Label)
	assert.Equal(t, map[string]string{"4006381333931": "lj01", "96385074": "mb02"}, recs[0].Stores)
}

func TestAttachmentSourcePrefersTableMetadata(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Summary"))
	require.NoError(t, f.SetCellValue("Summary", "A1", "Last order 2023-12-01"))
	_, err := f.NewSheet("Items")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Items", "A1", &[]any{"Order date: 2024-01-10"}))
	require.NoError(t, f.SetSheetRow("Items", "A2", &[]any{"EAN", "Nabavna cena"}))
	require.NoError(t, f.SetSheetRow("Items", "A3", &[]any{"4006381333931", "12,50"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	email := internal.EmailItem{Attachments: []internal.Attachment{{Name: "order.xlsx", ContentType: xlsxType, Content: buf.Bytes()}}}

	recs, err := (&AttachmentSource{}).Extract(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].OrderDate)
	assert.True(t, recs[0].OrderDate.Equal(day(2024, 1, 10)), "order date %v", recs[0].OrderDate)
}

func TestAttachmentSourceFallsBackToText(t *testing.T) {
	content := workbook(t, [][]any{{"EAN 5901234123457 cena 3,20 EUR"}})
	email := internal.EmailItem{Attachments: []internal.Attachment{{Name: "notes.xlsx", Content: content}}}

	recs, err := (&AttachmentSource{}).Extract(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Attachment: notes.xlsx", recs[0].Label)
	assert.Equal(t, 3.20, recs[0].SupplierPrices["5901234123457"])
}

func TestAttachmentSourceSkipsUnreadableFiles(t *testing.T) {
	email := internal.EmailItem{Attachments: []internal.Attachment{
		{Name: "broken.xlsx", ContentType: xlsxType, Content: []byte("not a zip")},
		{Name: "broken.pdf", ContentType: "application/pdf", Content: []byte("not a pdf")},
		{Name: "letter.docx", Content: []byte("PK")},
	}}

	recs, err := (&AttachmentSource{}).Extract(context.Background(), email)

	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestBodySourcePrefersHTMLTable(t *testing.T) {
	email := internal.EmailItem{BodyHTML: `<p>Delivery date: 2024-01-15</p>
<table>
  <tr><th>EAN</th><th>Supplier price</th><th>Our price</th></tr>
  <tr><td>4006381333931</td><td>9,99</td><td>8,50</td></tr>
</table>`}

	recs, err := (&BodySource{}).Extract(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "Email body (HTML table)", rec.Label)
	assert.Equal(t, 9.99, rec.SupplierPrices["4006381333931"])
	assert.Equal(t, 8.50, rec.InternalPrices["4006381333931"])
	require.NotNil(t, rec.DeliveryDate)
	assert.True(t, rec.DeliveryDate.Equal(day(2024, 1, 15)))
}

func TestBodySourcePlainText(t *testing.T) {
	email := internal.EmailItem{BodyText: "Order date 20.01.2024\nEAN 4006381333931 cena 12,50 EUR"}

	recs, err := (&BodySource{}).Extract(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Email body", recs[0].Label)
	assert.Equal(t, internal.SourceBody, recs[0].Source)
	require.NotNil(t, recs[0].OrderDate)
	assert.True(t, recs[0].OrderDate.Equal(day(2024, 1, 20)))
}

func TestBodySourceEmpty(t *testing.T) {
	recs, err := (&BodySource{}).Extract(context.Background(), internal.EmailItem{BodyText: "  "})
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = (&BodySource{}).Extract(context.Background(), internal.EmailItem{BodyText: "Hello, thanks!"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestOCRSource(t *testing.T) {
	src := &OCRSource{Recognizer: fakeRecognizer{text: "[OCR from inline:scan.png]\nEAN 4006381333931 cena 10,00 EUR\n"}}

	recs, err := src.Extract(context.Background(), internal.EmailItem{})

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, internal.SourceOCR, recs[0].Source)
	assert.Equal(t, "OCR from images", recs[0].Label)
	assert.Equal(t, 10.0, recs[0].SupplierPrices["4006381333931"])
}

func TestOCRSourceRecognizerFailureContributesNothing(t *testing.T) {
	src := &OCRSource{Recognizer: fakeRecognizer{err: errors.New("tesseract missing")}}

	recs, err := src.Extract(context.Background(), internal.EmailItem{})

	require.NoError(t, err)
	assert.Empty(t, recs)
}

type stubGapFiller struct {
	result map[string]any
	calls  int
}

func (s *stubGapFiller) FillGaps(context.Context, string, []string) (map[string]any, error) {
	s.calls++
	return s.result, nil
}

func TestOCRSourceAsksFillerWhenNoIdentifiers(t *testing.T) {
	filler := &stubGapFiller{result: map[string]any{
		"ean_codes":     []any{"4006381333931", "123"},
		"delivery_date": "2024-01-15",
	}}
	src := &OCRSource{Recognizer: fakeRecognizer{text: "blurry scan, EAN 40O638I333931"}, Filler: filler}

	recs, err := src.Extract(context.Background(), internal.EmailItem{})

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, filler.calls)
	assert.Equal(t, []string{"4006381333931"}, recs[0].EANs)
	require.NotNil(t, recs[0].DeliveryDate)
	assert.True(t, recs[0].DeliveryDate.Equal(day(2024, 1, 15)))
}
