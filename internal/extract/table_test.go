package extract

import (
	"testing"

	"pricecase/internal"
)

func TestExtractTableRowMatchedPairs(t *testing.T) {
	grid := Grid{Name: "Sheet1", Rows: [][]string{
		{"Naročilo za trgovino"},
		{"Delivery date: 15.01.2024"},
		{"EAN", "Supplier Price", "Store"},
		{"4006381333931", "10,50", "lj01"},
		{"", "", ""},
		{"12345678", "9,99", "bad checksum"},
		{"5901234123457", "20.00", "MB02"},
	}}

	table, ok := ExtractTable(grid, SheetFields, SheetHeaderScanRows)
	if !ok {
		t.Fatal("header not found")
	}
	if table.Header.Row != 2 {
		t.Fatalf("header row=%d", table.Header.Row)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len=%d", len(table.Rows))
	}
	first, second := table.Rows[0], table.Rows[1]
	if first.EAN != "4006381333931" || *first.SupplierPrice != 10.50 || *first.Store != "lj01" {
		t.Fatalf("first=%+v", first)
	}
	if second.EAN != "5901234123457" || *second.SupplierPrice != 20.00 || *second.Store != "MB02" {
		t.Fatalf("second=%+v", second)
	}

	meta := ExtractDocumentFields(table.Metadata)
	if meta.DeliveryDate == nil || !meta.DeliveryDate.Equal(day(2024, 1, 15)) {
		t.Fatalf("metadata delivery=%v from %q", meta.DeliveryDate, table.Metadata)
	}
}

func TestHeaderMappingPrefersSpecificSynonyms(t *testing.T) {
	row := []string{"Šifra", "EAN koda", "Naziv artikla", "Prodajna cena", "Nabavna cena", "Enota", "Enota mere"}
	cols := mapHeaderRow(row, SheetFields)
	want := map[Field]int{
		FieldArticleCode:   0,
		FieldEAN:           1,
		FieldArticleName:   2,
		FieldInternalPrice: 3,
		FieldSupplierPrice: 4,
		FieldStore:         5,
		FieldUnitOfMeasure: 6,
	}
	for field, idx := range want {
		if got, ok := cols[field]; !ok || got != idx {
			t.Fatalf("%s -> %d (ok=%v) want %d", field, got, ok, idx)
		}
	}
}

func TestHeaderQualification(t *testing.T) {
	cases := []struct {
		name   string
		row    []string
		fields []Field
		want   bool
	}{
		{name: "ean and price", row: []string{"EAN", "MPC"}, fields: SheetFields, want: true},
		{name: "ean and one other", row: []string{"EAN", "Naziv"}, fields: SheetFields, want: true},
		{name: "ean alone", row: []string{"EAN", "Opomba"}, fields: SheetFields, want: false},
		{name: "ean and two others", row: []string{"EAN", "Naziv", "Količina"}, fields: SheetFields, want: true},
		{name: "no identifier", row: []string{"Naziv", "Cena", "Enota"}, fields: SheetFields, want: false},
		{name: "table fields only", row: []string{"Barcode", "Naziv", "Količina"}, fields: TableFields, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := qualifiesAsHeader(mapHeaderRow(tc.row, tc.fields)); got != tc.want {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestShortSynonymsMatchWholeWords(t *testing.T) {
	if _, score := bestField("name", []Field{FieldUnitOfMeasure}); score != 0 {
		t.Fatalf("me matched inside name")
	}
	field, _ := bestField("mpc z ddv", SheetFields)
	if field != FieldInternalPrice {
		t.Fatalf("got %s", field)
	}
}

func TestFindHeaderRespectsScanLimit(t *testing.T) {
	rows := make([][]string, 0, 12)
	for i := 0; i < 11; i++ {
		rows = append(rows, []string{"note"})
	}
	rows = append(rows, []string{"EAN", "Cena"}, []string{"4006381333931", "1,00"})
	if _, ok := FindHeader(Grid{Rows: rows}, TableFields, TableHeaderScanRows); ok {
		t.Fatal("header beyond scan limit accepted")
	}
	if _, ok := FindHeader(Grid{Rows: rows}, SheetFields, SheetHeaderScanRows); !ok {
		t.Fatal("header within sheet limit missed")
	}
}

func TestParseEANCell(t *testing.T) {
	cases := map[string]string{
		"EAN: 4006381333931": "4006381333931",
		"4.006381333931E+12": "4006381333931",
		"koda 5901234123457": "5901234123457",
		" 4006 3813 33931 ":  "4006381333931",
	}
	for input, want := range cases {
		got, ok := parseEANCell(input)
		if !ok || got != want {
			t.Fatalf("parseEANCell(%q)=%q,%v", input, got, ok)
		}
	}
	if _, ok := parseEANCell("n/a"); ok {
		t.Fatal("accepted n/a")
	}
}

func TestTablesRecordFirstRowWins(t *testing.T) {
	p1, p2 := 1.5, 2.5
	tables := []Table{
		{Rows: []TableRow{{EAN: "4006381333931", SupplierPrice: &p1}}},
		{Rows: []TableRow{{EAN: "4006381333931", SupplierPrice: &p2}, {EAN: "5901234123457", InternalPrice: &p2}}},
	}
	rec := TablesRecord(tables, internal.SourceAttachment, "Attachment: a.xlsx (structured)")
	if len(rec.EANs) != 2 {
		t.Fatalf("eans=%v", rec.EANs)
	}
	if rec.SupplierPrices["4006381333931"] != 1.5 {
		t.Fatalf("prices=%v", rec.SupplierPrices)
	}
	if rec.InternalPrices["5901234123457"] != 2.5 {
		t.Fatalf("internal=%v", rec.InternalPrices)
	}
}

func TestExtractTableEANAndStoreOnly(t *testing.T) {
	grid := Grid{Rows: [][]string{
		{"EAN", "Trgovina"},
		{"4006381333931", "Ljubljana-1"},
		{"96385074", "Maribor-2"},
	}}
	tables := ExtractTables([]Grid{grid}, TableFields, TableHeaderScanRows)
	if len(tables) != 1 {
		t.Fatalf("tables=%d", len(tables))
	}
	rec := TablesRecord(tables, internal.SourceAttachment, "Attachment: stores.xlsx (structured)")
	if len(rec.EANs) != 2 {
		t.Fatalf("eans=%v", rec.EANs)
	}
	if rec.Stores["4006381333931"] != "Ljubljana-1" || rec.Stores["96385074"] != "Maribor-2" {
		t.Fatalf("stores=%v", rec.Stores)
	}
}
