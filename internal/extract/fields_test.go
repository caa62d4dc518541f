package extract

import (
	"testing"

	"pricecase/internal"
)

const sampleText = `Delivery Date: 2024-01-15
Order date 20.01.2024
Supplier: ACME d.o.o.
Invoice: INV-2024-001
Store: LJ01
EAN 4006381333931 cena 12,50 EUR
EAN 5901234123457 cena 1.234,56 €
Call 20240110 or see 15.01.2024`

func TestExtractEANs(t *testing.T) {
	got := ExtractEANs(sampleText + "\n4006381333931 again")
	if len(got) != 2 || got[0] != "4006381333931" || got[1] != "5901234123457" {
		t.Fatalf("got %v", got)
	}
}

func TestExtractPrices(t *testing.T) {
	got := ExtractPrices(sampleText)
	if len(got) != 2 || got[0] != 12.50 || got[1] != 1234.56 {
		t.Fatalf("got %v", got)
	}
	if got := ExtractPrices("refund -5.00 and 0,00"); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
	if got := ExtractPrices("EUR-3,00 or €-4,00"); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
	if got := ExtractPrices("range 10.50-12.00 EUR"); len(got) != 2 || got[0] != 10.50 || got[1] != 12.00 {
		t.Fatalf("got %v", got)
	}
}

func TestSupplierSkipsColumnHeaders(t *testing.T) {
	text := "EAN\tSupplier Price\tStore\n4006381333931\t12,50\tLJ01\nDobavitelj cena 10,00\n"
	if got := ExtractSuppliers(text); len(got) != 0 {
		t.Fatalf("suppliers=%v", got)
	}
	if got := ExtractSuppliers("Supplier Pricewise Trade\n"); len(got) != 1 || got[0] != "Pricewise Trade" {
		t.Fatalf("suppliers=%v", got)
	}
}

func TestLabelAnchoredFields(t *testing.T) {
	if got := ExtractSuppliers(sampleText); len(got) != 1 || got[0] != "ACME d.o.o." {
		t.Fatalf("suppliers=%v", got)
	}
	if got := ExtractSuppliers("Supplier Price: 10,50\r\nDobavitelj: Mercator Trade\r\n"); len(got) != 1 || got[0] != "Mercator Trade" {
		t.Fatalf("suppliers=%v", got)
	}
	if got := ExtractInvoiceNumbers(sampleText); len(got) != 1 || got[0] != "INV-2024-001" {
		t.Fatalf("invoices=%v", got)
	}
	if got := ExtractInvoiceNumbers("Račun št. 2024/15"); len(got) != 1 || got[0] != "2024/15" {
		t.Fatalf("invoices=%v", got)
	}
	if got := ExtractStores(sampleText); len(got) != 1 || got[0] != "LJ01" {
		t.Fatalf("stores=%v", got)
	}
	if got := ExtractStores("unit price is high"); len(got) != 0 {
		t.Fatalf("stores=%v", got)
	}
}

func TestExtractFieldsPairsByPosition(t *testing.T) {
	rec := ExtractFields(sampleText, internal.SourceBody, "Email body")
	if rec.Source != internal.SourceBody || rec.Label != "Email body" {
		t.Fatalf("source=%s label=%s", rec.Source, rec.Label)
	}
	if len(rec.EANs) != 2 {
		t.Fatalf("eans=%v", rec.EANs)
	}
	if rec.SupplierPrices["4006381333931"] != 12.50 || rec.SupplierPrices["5901234123457"] != 1234.56 {
		t.Fatalf("prices=%v", rec.SupplierPrices)
	}
	if rec.Stores["5901234123457"] != "LJ01" {
		t.Fatalf("stores=%v", rec.Stores)
	}
	if rec.DeliveryDate == nil || !rec.DeliveryDate.Equal(day(2024, 1, 15)) {
		t.Fatalf("delivery=%v", rec.DeliveryDate)
	}
	if rec.OrderDate == nil || !rec.OrderDate.Equal(day(2024, 1, 20)) {
		t.Fatalf("order=%v", rec.OrderDate)
	}
	if rec.DocumentDate == nil || !rec.DocumentDate.Equal(day(2024, 1, 15)) {
		t.Fatalf("document=%v", rec.DocumentDate)
	}
	if rec.SupplierName == nil || *rec.SupplierName != "ACME d.o.o." {
		t.Fatalf("supplier=%v", rec.SupplierName)
	}
	if rec.InvoiceNumber == nil || *rec.InvoiceNumber != "INV-2024-001" {
		t.Fatalf("invoice=%v", rec.InvoiceNumber)
	}
}

func TestExtractDocumentFieldsLeavesMappingsEmpty(t *testing.T) {
	rec := ExtractDocumentFields(sampleText)
	if len(rec.EANs) != 0 || len(rec.SupplierPrices) != 0 || len(rec.Stores) != 0 {
		t.Fatalf("document fields carry item data: %+v", rec)
	}
}
