package pipeline

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pricecase/internal"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) RecognizeEmail(context.Context, internal.EmailItem) (string, error) {
	return f.text, f.err
}

type fakeAdapter struct {
	name    string
	records []internal.ExtractedRecord
	err     error
	panics  bool
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Extract(context.Context, internal.EmailItem) ([]internal.ExtractedRecord, error) {
	if f.panics {
		panic("adapter exploded")
	}
	return f.records, f.err
}
