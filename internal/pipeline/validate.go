package pipeline

import "pricecase/internal"

const mandatoryDateMessage = "MANDATORY DATE GATE: Email must contain at least one of Delivery Date or Order Creation Date. Neither was found."

// BusinessError is a rule violation in otherwise readable input. The email
// is skipped and left unread.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string { return e.Message }

// ValidateMandatoryDates requires a delivery or order date.
func ValidateMandatoryDates(rec internal.MergedRecord) error {
	if rec.DeliveryDate == nil && rec.OrderDate == nil {
		return &BusinessError{Message: mandatoryDateMessage}
	}
	return nil
}
