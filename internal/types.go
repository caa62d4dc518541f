package internal

import "time"

type SourceKind string

const (
	SourceOCR        SourceKind = "OCR"
	SourceAttachment SourceKind = "ATTACHMENT"
	SourceBody       SourceKind = "BODY"
)

type ProcessStatus string

type ErrorType string

const (
	StatusProcessed        ProcessStatus = "PROCESSED"
	StatusSkippedBusiness  ProcessStatus = "SKIPPED_BUSINESS_ERROR"
	StatusSkippedTechnical ProcessStatus = "SKIPPED_TECHNICAL_ERROR"

	ErrorBusiness   ErrorType = "BUSINESS"
	ErrorTechnical  ErrorType = "TECHNICAL"
	ErrorUnexpected ErrorType = "UNEXPECTED"
)

type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// MessageRef is the listing metadata of an unread message, enough to fetch
// it, log it and acknowledge it.
type MessageRef struct {
	Provider   string
	ID         string
	Subject    string
	Sender     string
	ReceivedAt time.Time
	WebLink    string
}

type EmailItem struct {
	MessageID    string
	Subject      string
	Sender       string
	ReceivedAt   time.Time
	BodyText     string
	BodyHTML     string
	WebLink      string
	Attachments  []Attachment
	InlineImages []Attachment
	// Raw holds the RFC 822 source when the provider exposes it.
	Raw []byte
}

type ExtractedRecord struct {
	Source         SourceKind
	Label          string
	EANs           []string
	DeliveryDate   *time.Time
	OrderDate      *time.Time
	DocumentDate   *time.Time
	SupplierName   *string
	InvoiceNumber  *string
	SupplierPrices map[string]float64
	InternalPrices map[string]float64
	Stores         map[string]string
}

func NewRecord(source SourceKind, label string) ExtractedRecord {
	return ExtractedRecord{
		Source:         source,
		Label:          label,
		SupplierPrices: map[string]float64{},
		InternalPrices: map[string]float64{},
		Stores:         map[string]string{},
	}
}

// AddEAN appends code unless it is already present.
func (r *ExtractedRecord) AddEAN(code string) {
	if r.HasEAN(code) {
		return
	}
	r.EANs = append(r.EANs, code)
}

func (r ExtractedRecord) HasEAN(code string) bool {
	for _, existing := range r.EANs {
		if existing == code {
			return true
		}
	}
	return false
}

func (r ExtractedRecord) HasDates() bool {
	return r.DeliveryDate != nil || r.OrderDate != nil
}

// IsEmpty reports whether the record carries no identifier, scalar or mapping.
func (r ExtractedRecord) IsEmpty() bool {
	return len(r.EANs) == 0 &&
		r.DeliveryDate == nil && r.OrderDate == nil && r.DocumentDate == nil &&
		r.SupplierName == nil && r.InvoiceNumber == nil &&
		len(r.SupplierPrices) == 0 && len(r.InternalPrices) == 0 && len(r.Stores) == 0
}

type MergedRecord struct {
	ExtractedRecord
	// Sources lists the contributing kinds, highest trust first.
	Sources   []SourceKind
	Conflicts []string
}

func (m MergedRecord) UsedSource(kind SourceKind) bool {
	for _, s := range m.Sources {
		if s == kind {
			return true
		}
	}
	return false
}

type CaseRow struct {
	Store         string
	EAN           string
	DocumentDate  *time.Time
	DeliveryDate  *time.Time
	OrderDate     *time.Time
	SupplierPrice *float64
	InternalPrice *float64
	SupplierName  *string
	InvoiceNumber *string
	Sender        string
	EmailRef      string
	Comments      string
}

type ProcessResult struct {
	MessageID    string
	Sender       string
	Subject      string
	ReceivedAt   time.Time
	Status       ProcessStatus
	ErrorType    ErrorType
	ErrorMessage string
	CaseRows     []CaseRow
	MarkedAsRead bool
}
