// Package storage provides the SQLite implementation of RecordStore.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/models"
)

// SQLiteStore implements RecordStore using SQLite. The UNIQUE constraints on
// po_number and hash are the authoritative duplicate guard; the pre-check in
// save only exists to produce a friendly message without racing.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// StoreOption configures a SQLiteStore.
type StoreOption func(*SQLiteStore)

// WithLogger sets a logger for warnings (malformed stored rows, etc.).
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *SQLiteStore) { s.logger = l }
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, opts ...StoreOption) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		po_number TEXT UNIQUE NOT NULL,
		invoice_number TEXT,
		customer_name TEXT,
		customer_contact_number TEXT,
		customer_contact_email TEXT,
		customer_address TEXT,
		date TEXT,
		due_date TEXT,
		total_amount TEXT,
		currency TEXT,
		supplier TEXT,
		items TEXT NOT NULL,
		hash TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS purchase_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		po_number TEXT UNIQUE NOT NULL,
		customer_name TEXT,
		customer_contact_number TEXT,
		customer_contact_email TEXT,
		customer_address TEXT,
		order_date TEXT,
		total_amount TEXT,
		currency TEXT,
		supplier TEXT,
		items TEXT NOT NULL,
		hash TEXT UNIQUE NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveInvoice persists an invoice record, rejecting duplicates by PO number
// or content hash.
func (s *SQLiteStore) SaveInvoice(ctx context.Context, rec *models.Record) (SaveResult, error) {
	return s.save(ctx, rec, "invoices",
		`INSERT INTO invoices (
			po_number, invoice_number, customer_name, customer_contact_number,
			customer_contact_email, customer_address, date, due_date,
			total_amount, currency, supplier, items, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(key, itemsJSON, hash string) []any {
			return []any{
				key, models.Deref(rec.InvoiceNumber), models.Deref(rec.CustomerName),
				models.Deref(rec.CustomerContactNumber), models.Deref(rec.CustomerContactEmail),
				models.Deref(rec.CustomerAddress), models.Deref(rec.Date), models.Deref(rec.DueDate),
				models.Deref(rec.TotalAmount), models.Deref(rec.Currency), models.Deref(rec.Supplier),
				itemsJSON, hash,
			}
		})
}

// SavePurchaseOrder persists a purchase order record, rejecting duplicates by
// PO number or content hash.
func (s *SQLiteStore) SavePurchaseOrder(ctx context.Context, rec *models.Record) (SaveResult, error) {
	return s.save(ctx, rec, "purchase_orders",
		`INSERT INTO purchase_orders (
			po_number, customer_name, customer_contact_number,
			customer_contact_email, customer_address, order_date,
			total_amount, currency, supplier, items, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(key, itemsJSON, hash string) []any {
			return []any{
				key, models.Deref(rec.CustomerName),
				models.Deref(rec.CustomerContactNumber), models.Deref(rec.CustomerContactEmail),
				models.Deref(rec.CustomerAddress), models.Deref(rec.OrderDate),
				models.Deref(rec.TotalAmount), models.Deref(rec.Currency), models.Deref(rec.Supplier),
				itemsJSON, hash,
			}
		})
}

func (s *SQLiteStore) save(ctx context.Context, rec *models.Record, table, insertSQL string, args func(key, itemsJSON, hash string) []any) (SaveResult, error) {
	key := rec.PONumberKey()
	if key == "" {
		return SaveResult{}, fmt.Errorf("record has no PO number")
	}
	hash := rec.ContentHash()

	itemsData, err := json.Marshal(rec.NormalizedItems())
	if err != nil {
		return SaveResult{}, fmt.Errorf("marshal items: %w", err)
	}

	// Fast path: friendly duplicate message. The insert below is the real guard.
	var one int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE po_number = ? OR hash = ?", table),
		key, hash,
	).Scan(&one)
	if err == nil {
		return duplicateResult(key), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return SaveResult{}, fmt.Errorf("duplicate check: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, insertSQL, args(key, string(itemsData), hash)...); err != nil {
		if isConstraintViolation(err) {
			return duplicateResult(key), nil
		}
		return SaveResult{}, fmt.Errorf("insert record: %w", err)
	}
	return SaveResult{
		Saved:   true,
		Message: fmt.Sprintf("Record with PO Number %s successfully saved.", key),
	}, nil
}

func duplicateResult(key string) SaveResult {
	return SaveResult{
		Saved:   false,
		Message: fmt.Sprintf("Duplicate detected: record with PO Number %s already exists.", key),
	}
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// GetAllInvoices returns all stored invoices. Rows whose items column fails
// to deserialize are skipped and logged; the read continues.
func (s *SQLiteStore) GetAllInvoices(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT po_number, invoice_number, customer_name, customer_contact_number,
			customer_contact_email, customer_address, date, due_date,
			total_amount, currency, supplier, items
		 FROM invoices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var poNumber, invoiceNumber, customerName, contactNumber, contactEmail string
		var address, date, dueDate, totalAmount, currency, supplier, itemsJSON string
		if err := rows.Scan(&poNumber, &invoiceNumber, &customerName, &contactNumber,
			&contactEmail, &address, &date, &dueDate, &totalAmount, &currency, &supplier, &itemsJSON); err != nil {
			return nil, err
		}
		rec := &models.Record{
			PONumber:              optional(poNumber),
			InvoiceNumber:         optional(invoiceNumber),
			CustomerName:          optional(customerName),
			CustomerContactNumber: optional(contactNumber),
			CustomerContactEmail:  optional(contactEmail),
			CustomerAddress:       optional(address),
			Date:                  optional(date),
			DueDate:               optional(dueDate),
			TotalAmount:           optional(totalAmount),
			Currency:              optional(currency),
			Supplier:              optional(supplier),
		}
		if !s.decodeItems(itemsJSON, poNumber, rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetAllPurchaseOrders returns all stored purchase orders, skipping rows with
// malformed items JSON.
func (s *SQLiteStore) GetAllPurchaseOrders(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT po_number, customer_name, customer_contact_number,
			customer_contact_email, customer_address, order_date,
			total_amount, currency, supplier, items
		 FROM purchase_orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var poNumber, customerName, contactNumber, contactEmail string
		var address, orderDate, totalAmount, currency, supplier, itemsJSON string
		if err := rows.Scan(&poNumber, &customerName, &contactNumber, &contactEmail,
			&address, &orderDate, &totalAmount, &currency, &supplier, &itemsJSON); err != nil {
			return nil, err
		}
		rec := &models.Record{
			PONumber:              optional(poNumber),
			CustomerName:          optional(customerName),
			CustomerContactNumber: optional(contactNumber),
			CustomerContactEmail:  optional(contactEmail),
			CustomerAddress:       optional(address),
			OrderDate:             optional(orderDate),
			TotalAmount:           optional(totalAmount),
			Currency:              optional(currency),
			Supplier:              optional(supplier),
		}
		if !s.decodeItems(itemsJSON, poNumber, rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// decodeItems fills rec.Items from the stored JSON. Returns false when the
// JSON is malformed, in which case the row should be skipped.
func (s *SQLiteStore) decodeItems(itemsJSON, poNumber string, rec *models.Record) bool {
	var items []models.Item
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		if s.logger != nil {
			s.logger.Warn("skipping record with malformed items column",
				zap.String("po_number", poNumber), zap.Error(err))
		}
		return false
	}
	if items == nil {
		items = []models.Item{}
	}
	rec.Items = items
	return true
}

// HasPurchaseOrder reports whether a purchase order exists for the normalized PO number.
func (s *SQLiteStore) HasPurchaseOrder(ctx context.Context, poNumber string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM purchase_orders WHERE po_number = ?`, poNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountInvoices returns the number of stored invoices.
func (s *SQLiteStore) CountInvoices(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count)
	return count, err
}

// CountPurchaseOrders returns the number of stored purchase orders.
func (s *SQLiteStore) CountPurchaseOrders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_orders`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// optional converts a persisted column value back to the in-memory optional
// representation: empty string means the field was absent.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
