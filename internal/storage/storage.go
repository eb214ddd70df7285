// Package storage defines the persistence interface for extracted records.
package storage

import (
	"context"

	"github.com/hyperjump/seikyu/internal/models"
)

// SaveResult is the outcome of a save attempt. Duplicate rejections are
// results, not errors: they carry a user-facing message naming the
// conflicting PO number and must not abort a batch of uploads.
type SaveResult struct {
	Saved   bool   `json:"saved"`
	Message string `json:"message"`
}

// RecordStore persists invoices and purchase orders. Records are immutable
// once saved; there is no update or delete path.
type RecordStore interface {
	SaveInvoice(ctx context.Context, rec *models.Record) (SaveResult, error)
	SavePurchaseOrder(ctx context.Context, rec *models.Record) (SaveResult, error)
	GetAllInvoices(ctx context.Context) ([]*models.Record, error)
	GetAllPurchaseOrders(ctx context.Context) ([]*models.Record, error)
	// HasPurchaseOrder reports whether a purchase order with the given
	// normalized PO number is on file. Used to validate invoices.
	HasPurchaseOrder(ctx context.Context, poNumber string) (bool, error)
	CountInvoices(ctx context.Context) (int64, error)
	CountPurchaseOrders(ctx context.Context) (int64, error)
	Close() error
}
