package assist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecase/internal"
)

type stubFiller struct {
	result map[string]any
	err    error
	calls  int
	fields []string
}

func (s *stubFiller) FillGaps(_ context.Context, _ string, fields []string) (map[string]any, error) {
	s.calls++
	s.fields = fields
	return s.result, s.err
}

func TestToRecordValidatesEverything(t *testing.T) {
	result, err := ParseResult(`{
		"ean_codes": ["4006381333931", "1234567890123", 5901234123457, "20240110"],
		"delivery_date": "2024-01-15",
		"order_creation_date": "not a date",
		"document_creation_date": null,
		"supplier_name": "  ACME  d.o.o. ",
		"supplier_invoice_number": "null",
		"supplier_prices": {"4006381333931": 12.5, "5901234123457": "-3,00", "9999999999994": 1.0},
		"internal_prices": {"5901234123457": "7,10 €"},
		"stores": {"4006381333931": "lj01", "1234567890123": "MB02"}
	}`)
	require.NoError(t, err)

	rec := ToRecord(result, internal.SourceOCR, "OCR from images")

	assert.Equal(t, []string{"4006381333931", "5901234123457"}, rec.EANs)
	require.NotNil(t, rec.DeliveryDate)
	assert.True(t, rec.DeliveryDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, rec.OrderDate)
	assert.Nil(t, rec.DocumentDate)
	require.NotNil(t, rec.SupplierName)
	assert.Equal(t, "ACME d.o.o.", *rec.SupplierName)
	assert.Nil(t, rec.InvoiceNumber)
	assert.Equal(t, map[string]float64{"4006381333931": 12.5}, rec.SupplierPrices)
	assert.Equal(t, map[string]float64{"5901234123457": 7.10}, rec.InternalPrices)
	assert.Equal(t, map[string]string{"4006381333931": "lj01"}, rec.Stores)
}

func TestToRecordToleratesWrongShapes(t *testing.T) {
	rec := ToRecord(map[string]any{
		"ean_codes":       map[string]any{"x": 1},
		"supplier_prices": []any{1, 2},
		"delivery_date":   true,
	}, internal.SourceOCR, "OCR from images")

	assert.True(t, rec.IsEmpty())
}

func TestFillPassesAllFields(t *testing.T) {
	stub := &stubFiller{result: map[string]any{"ean_codes": []any{"96385074"}}}

	rec, err := Fill(context.Background(), stub, "text", internal.SourceOCR, "OCR from images")

	require.NoError(t, err)
	assert.Equal(t, Fields, stub.fields)
	assert.Equal(t, []string{"96385074"}, rec.EANs)
}

func TestFillReturnsProviderError(t *testing.T) {
	stub := &stubFiller{err: errors.New("quota")}

	_, err := Fill(context.Background(), stub, "text", internal.SourceOCR, "OCR from images")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestParseResult(t *testing.T) {
	got, err := ParseResult("Here you go:\n```json\n{\"supplier_name\": \"Mercator\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Mercator", got["supplier_name"])

	_, err = ParseResult("nothing useful")
	assert.Error(t, err)

	_, err = ParseResult("{broken")
	assert.Error(t, err)
}

func TestBuildPromptListsFields(t *testing.T) {
	prompt := BuildPrompt("Dobava 15.01.2024", []string{KeyDeliveryDate, KeyEANs})

	assert.Contains(t, prompt, "- delivery_date: date as YYYY-MM-DD")
	assert.Contains(t, prompt, "- ean_codes:")
	assert.Contains(t, prompt, "Dobava 15.01.2024")
}

func TestThrottleHonorsContext(t *testing.T) {
	stub := &stubFiller{}
	throttled := Throttle(stub, 1)

	_, err := throttled.FillGaps(context.Background(), "a", Fields)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = throttled.FillGaps(ctx, "b", Fields)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, stub.calls)
}
