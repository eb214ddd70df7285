package models

import "fmt"

// ValidationStatus is the outcome of validating an extracted record before persistence.
type ValidationStatus string

const (
	// ValidationOK means the record is eligible for persistence.
	ValidationOK ValidationStatus = "ok"
	// ValidationMissingBusinessKey means no PO number was extracted; the record must not be persisted.
	ValidationMissingBusinessKey ValidationStatus = "missing_business_key"
	// ValidationUnmatchedPurchaseOrder means an invoice references a PO number
	// with no matching purchase order on file; the record must not be persisted.
	ValidationUnmatchedPurchaseOrder ValidationStatus = "unmatched_purchase_order"
)

// Validation carries the validation outcome and a user-facing message.
// Validation failures are results, not errors: extraction succeeded, the
// record is simply not eligible to store.
type Validation struct {
	Status  ValidationStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}

// OK reports whether the record passed validation.
func (v Validation) OK() bool {
	return v.Status == ValidationOK
}

// ValidationFailure builds a failed Validation with a formatted message.
func ValidationFailure(status ValidationStatus, format string, args ...any) Validation {
	return Validation{Status: status, Message: fmt.Sprintf(format, args...)}
}
