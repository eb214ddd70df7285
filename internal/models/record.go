// Package models defines core data structures for records, validation, and chat.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// UploadKind distinguishes the two record kinds handled by the pipeline.
type UploadKind string

const (
	KindInvoice       UploadKind = "invoice"
	KindPurchaseOrder UploadKind = "purchase_order"
)

// Item is a single line item on a record. All fields are optional; a nil
// pointer means the field was not found in the source document.
type Item struct {
	Name     *string `json:"name,omitempty"`
	Price    *string `json:"price,omitempty"`
	Quantity *string `json:"quantity,omitempty"`
	Subtotal *string `json:"subtotal,omitempty"`
}

// Record is a structured invoice or purchase order extracted from a document.
// Invoices and purchase orders share the same shape; a record is an invoice
// when InvoiceNumber is present. Optional fields are nil when absent and
// become empty strings only at the persistence boundary.
type Record struct {
	PONumber              *string `json:"po_number,omitempty"`
	InvoiceNumber         *string `json:"invoice_number,omitempty"`
	OrderDate             *string `json:"order_date,omitempty"`
	CustomerName          *string `json:"customer_name,omitempty"`
	CustomerContactNumber *string `json:"customer_contact_number,omitempty"`
	CustomerContactEmail  *string `json:"customer_contact_email,omitempty"`
	CustomerAddress       *string `json:"customer_address,omitempty"`
	Date                  *string `json:"date,omitempty"`
	DueDate               *string `json:"due_date,omitempty"`
	TotalAmount           *string `json:"total_amount,omitempty"`
	Currency              *string `json:"currency,omitempty"`
	Supplier              *string `json:"supplier,omitempty"`
	Items                 []Item  `json:"items,omitempty"`
}

// Kind returns KindInvoice when an invoice number is present, else KindPurchaseOrder.
func (r *Record) Kind() UploadKind {
	if Present(r.InvoiceNumber) {
		return KindInvoice
	}
	return KindPurchaseOrder
}

// PONumberKey returns the normalized business key: trimmed and uppercased.
// Empty string when the PO number is absent.
func (r *Record) PONumberKey() string {
	if r.PONumber == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*r.PONumber))
}

// BusinessKey returns the key used for vector index duplicate suppression:
// the invoice number when present, else the normalized PO number.
func (r *Record) BusinessKey() string {
	if Present(r.InvoiceNumber) {
		return strings.TrimSpace(*r.InvoiceNumber)
	}
	return r.PONumberKey()
}

// NormalizedItems returns the items for storage: never nil, absent becomes
// an empty slice.
func (r *Record) NormalizedItems() []Item {
	if r.Items == nil {
		return []Item{}
	}
	return r.Items
}

// fieldMap is the canonical field map hashed by ContentHash: every persisted
// scalar field in its persisted representation (normalized PO number, trimmed
// scalars, empty string for absent) plus the normalized items list. The hash
// column itself is not part of the map.
func (r *Record) fieldMap() map[string]any {
	items := make([]map[string]string, 0, len(r.NormalizedItems()))
	for _, it := range r.NormalizedItems() {
		items = append(items, map[string]string{
			"name":     Deref(it.Name),
			"price":    Deref(it.Price),
			"quantity": Deref(it.Quantity),
			"subtotal": Deref(it.Subtotal),
		})
	}
	return map[string]any{
		"po_number":               r.PONumberKey(),
		"invoice_number":          Deref(r.InvoiceNumber),
		"order_date":              Deref(r.OrderDate),
		"customer_name":           Deref(r.CustomerName),
		"customer_contact_number": Deref(r.CustomerContactNumber),
		"customer_contact_email":  Deref(r.CustomerContactEmail),
		"customer_address":        Deref(r.CustomerAddress),
		"date":                    Deref(r.Date),
		"due_date":                Deref(r.DueDate),
		"total_amount":            Deref(r.TotalAmount),
		"currency":                Deref(r.Currency),
		"supplier":                Deref(r.Supplier),
		"items":                   items,
	}
}

// ContentHash returns the SHA-256 hex digest over the canonical sorted-key
// JSON serialization of the record's field map. encoding/json emits map keys
// in sorted order, which makes the serialization canonical.
func (r *Record) ContentHash() string {
	data, err := json.Marshal(r.fieldMap())
	if err != nil {
		// fieldMap contains only strings and string maps; Marshal cannot fail.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Present reports whether an optional field carries a non-blank value.
func Present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// Deref returns the trimmed value of an optional field, or "" when absent.
// This is the persistence-boundary representation of absence.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// Ptr returns a pointer to s. Convenience for building records in tests.
func Ptr(s string) *string {
	return &s
}
