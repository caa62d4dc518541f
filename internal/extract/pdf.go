package extract

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
)

// PDFText returns the plain text of every page joined by newlines.
func PDFText(content []byte) (text string, err error) {
	defer recoverPDF(&err)

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), nil
}

// PDFGrids lays out every page as a grid: text runs sharing a baseline form
// a row and wide horizontal gaps split the row into cells.
func PDFGrids(content []byte) (grids []Grid, err error) {
	defer recoverPDF(&err)

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		grid := Grid{Name: fmt.Sprintf("page%d", i)}
		for _, row := range rows {
			if row == nil {
				continue
			}
			if cells := rowCells(row.Content); len(cells) > 0 {
				grid.Rows = append(grid.Rows, cells)
			}
		}
		if len(grid.Rows) > 0 {
			grids = append(grids, grid)
		}
	}
	return grids, nil
}

// rowCells joins glyph runs into words and words into cells. A gap wider
// than one em starts a new cell; a gap wider than a fifth of an em is a space.
func rowCells(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var cur strings.Builder
	prevEnd := 0.0
	for i, t := range sorted {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if i > 0 && cur.Len() > 0 {
			gap := t.X - prevEnd
			switch {
			case gap > size:
				if cell := strings.TrimSpace(cur.String()); cell != "" {
					cells = append(cells, cell)
				}
				cur.Reset()
			case gap > size*0.2:
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(t.S)
		prevEnd = t.X + textWidth(t, size)
	}
	if cell := strings.TrimSpace(cur.String()); cell != "" {
		cells = append(cells, cell)
	}
	return cells
}

func textWidth(t pdf.Text, size float64) float64 {
	if t.W > 0 {
		return t.W
	}
	return size * 0.5 * float64(utf8.RuneCountInString(t.S))
}

// recoverPDF turns a panic inside the PDF reader into an error; malformed
// files can trip it.
func recoverPDF(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("read pdf: %v", r)
	}
}

func IsPDF(name, contentType string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf") || strings.Contains(strings.ToLower(contentType), "application/pdf")
}
