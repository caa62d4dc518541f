package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"pricecase/internal"
	"pricecase/internal/util"
)

type Field string

const (
	FieldEAN           Field = "ean"
	FieldSupplierPrice Field = "supplier_price"
	FieldInternalPrice Field = "internal_price"
	FieldStore         Field = "store"
	FieldArticleCode   Field = "article_code"
	FieldArticleName   Field = "article_name"
	FieldQuantity      Field = "quantity"
	FieldUnitOfMeasure Field = "unit_of_measure"
)

const (
	SheetHeaderScanRows = 20
	TableHeaderScanRows = 10
)

var (
	// SheetFields are mapped in spreadsheets.
	SheetFields = []Field{
		FieldEAN, FieldSupplierPrice, FieldInternalPrice, FieldStore,
		FieldArticleCode, FieldArticleName, FieldQuantity, FieldUnitOfMeasure,
	}
	// TableFields are mapped in PDF and HTML tables.
	TableFields = []Field{FieldEAN, FieldSupplierPrice, FieldInternalPrice, FieldStore}
)

var headerSynonyms = map[Field][]string{
	FieldEAN: {
		"ean", "ean code", "ean koda", "ean-koda", "ean šifra", "črtna koda",
		"barcode", "bar code", "barkoda", "gtin",
	},
	FieldSupplierPrice: {
		"dobaviteljeva cena", "cena dobavitelja", "nabavna cena", "supplier price",
		"purchase price", "cost price", "unit price", "cena", "vpc", "nc", "nab. cena", "nab cena",
	},
	FieldInternalPrice: {
		"naša cena", "prodajna cena", "mpc", "maloprodajna cena", "internal price",
		"own price", "our price", "selling price", "retail price", "pc", "prod. cena", "prod cena",
	},
	FieldStore: {
		"enota", "trgovina", "poslovalnica", "unit", "store", "lokacija", "location",
		"poslovni prostor",
	},
	FieldArticleCode: {
		"šifra", "šifra artikla", "article code", "item code", "product code", "code", "sku",
	},
	FieldArticleName: {
		"artikel", "naziv artikla", "article name", "item name", "product name", "naziv",
		"opis", "description", "article", "product",
	},
	FieldQuantity: {"količina", "kol", "kol.", "qty", "quantity"},
	FieldUnitOfMeasure: {
		"enota mere", "em", "uom", "unit of measure", "me",
	},
}

var reEANCellPrefix = regexp.MustCompile(`(?i)^\s*(?:ean|code|koda)\s*:?\s*`)

// Grid is one rectangular block of cells: a sheet, a PDF page or an HTML table.
// Display, when set, holds the human formatted rendering of Rows and is used
// for document level metadata.
type Grid struct {
	Name    string
	Rows    [][]string
	Display [][]string
}

type Header struct {
	Row     int
	Columns map[Field]int
}

type TableRow struct {
	EAN           string
	SupplierPrice *float64
	InternalPrice *float64
	Store         *string
}

type Table struct {
	Grid     string
	Header   Header
	Rows     []TableRow
	Metadata string
}

// FindHeader scans the first limit rows of grid for a header row.
func FindHeader(grid Grid, fields []Field, limit int) (Header, bool) {
	for i, row := range grid.Rows {
		if i >= limit {
			break
		}
		columns := mapHeaderRow(row, fields)
		if qualifiesAsHeader(columns) {
			return Header{Row: i, Columns: columns}, true
		}
	}
	return Header{}, false
}

// ExtractTable maps the header of grid and parses every following row. Rows
// without a valid identifier are skipped whole.
func ExtractTable(grid Grid, fields []Field, limit int) (Table, bool) {
	header, ok := FindHeader(grid, fields, limit)
	if !ok {
		return Table{}, false
	}

	table := Table{Grid: grid.Name, Header: header, Metadata: metadataText(grid, header.Row)}
	for _, row := range grid.Rows[header.Row+1:] {
		if isEmptyRow(row) {
			continue
		}
		ean, ok := parseEANCell(cellAt(row, header.Columns, FieldEAN))
		if !ok {
			continue
		}
		parsed := TableRow{EAN: ean}
		if price, ok := util.ParsePrice(cellAt(row, header.Columns, FieldSupplierPrice)); ok {
			parsed.SupplierPrice = util.FloatPtr(price)
		}
		if price, ok := util.ParsePrice(cellAt(row, header.Columns, FieldInternalPrice)); ok {
			parsed.InternalPrice = util.FloatPtr(price)
		}
		if store := util.NormalizeSpaces(cellAt(row, header.Columns, FieldStore)); store != "" {
			parsed.Store = util.StringPtr(store)
		}
		table.Rows = append(table.Rows, parsed)
	}
	return table, true
}

// ExtractTables runs ExtractTable over every grid and keeps the ones with a
// header.
func ExtractTables(grids []Grid, fields []Field, limit int) []Table {
	var out []Table
	for _, grid := range grids {
		if table, ok := ExtractTable(grid, fields, limit); ok {
			out = append(out, table)
		}
	}
	return out
}

// TablesRecord folds table rows into one record. The first row seen for an
// identifier owns its price and store.
func TablesRecord(tables []Table, source internal.SourceKind, label string) internal.ExtractedRecord {
	rec := internal.NewRecord(source, label)
	for _, table := range tables {
		for _, row := range table.Rows {
			entry := internal.ExtractedRecord{
				EANs:           []string{row.EAN},
				SupplierPrices: priceMap(row.EAN, row.SupplierPrice),
				InternalPrices: priceMap(row.EAN, row.InternalPrice),
				Stores:         storeMap(row.EAN, row.Store),
			}
			internal.FillMissing(&rec, entry)
		}
	}
	return rec
}

func priceMap(ean string, price *float64) map[string]float64 {
	if price == nil {
		return nil
	}
	return map[string]float64{ean: *price}
}

func storeMap(ean string, store *string) map[string]string {
	if store == nil {
		return nil
	}
	return map[string]string{ean: *store}
}

func mapHeaderRow(row []string, fields []Field) map[Field]int {
	columns := map[Field]int{}
	scores := map[Field]int{}
	for col, raw := range row {
		cell := util.NormalizeCell(raw)
		if cell == "" {
			continue
		}
		field, score := bestField(cell, fields)
		if score == 0 {
			continue
		}
		if prev, ok := scores[field]; ok && prev >= score {
			continue
		}
		columns[field] = col
		scores[field] = score
	}
	return columns
}

// bestField picks the field whose synonym matches cell most specifically.
// Exact matches beat substrings and longer synonyms beat shorter ones; an
// identifier synonym anywhere in the cell wins over other partial matches.
func bestField(cell string, fields []Field) (Field, int) {
	var best Field
	bestScore := 0
	for _, field := range fields {
		for _, variant := range headerSynonyms[field] {
			score := 0
			switch {
			case cell == variant:
				score = 1000 + utf8.RuneCountInString(variant)
			case synonymInCell(cell, variant):
				score = utf8.RuneCountInString(variant)
				if field == FieldEAN {
					score += 100
				}
			}
			if score > bestScore {
				best, bestScore = field, score
			}
		}
	}
	return best, bestScore
}

// synonymInCell treats synonyms of three runes or fewer as whole words so
// "pc" does not match inside "mpc" and "me" not inside "name".
func synonymInCell(cell, variant string) bool {
	if utf8.RuneCountInString(variant) > 3 {
		return strings.Contains(cell, variant)
	}
	for _, word := range util.Words(cell) {
		if word == strings.TrimSuffix(variant, ".") {
			return true
		}
	}
	return false
}

func qualifiesAsHeader(columns map[Field]int) bool {
	if _, ok := columns[FieldEAN]; !ok {
		return false
	}
	_, hasSupplier := columns[FieldSupplierPrice]
	_, hasInternal := columns[FieldInternalPrice]
	if hasSupplier || hasInternal {
		return true
	}
	return len(columns) >= 2
}

func parseEANCell(cell string) (string, bool) {
	s := strings.TrimSpace(cell)
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f == float64(int64(f)) {
			s = strconv.FormatInt(int64(f), 10)
		}
	}
	s = reEANCellPrefix.ReplaceAllString(s, "")
	code := util.DigitsOnly(s)
	if !IsValidEAN(code) {
		return "", false
	}
	return code, true
}

func cellAt(row []string, columns map[Field]int, field Field) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func metadataText(grid Grid, headerRow int) string {
	source := grid.Display
	if source == nil {
		source = grid.Rows
	}
	lines := make([]string, 0, headerRow)
	for i := 0; i < headerRow && i < len(source); i++ {
		if line := util.NormalizeSpaces(strings.Join(source[i], " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
