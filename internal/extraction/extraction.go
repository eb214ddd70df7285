// Package extraction turns raw document bytes into a validated record: text
// extraction, structured LLM extraction, normalization, and the business-key
// checks that gate persistence.
package extraction

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/extract"
	"github.com/hyperjump/seikyu/internal/llm"
	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/storage"
	"github.com/hyperjump/seikyu/pkg/utils"
)

// Details is the outcome of extracting a single document.
type Details struct {
	Record     *models.Record    `json:"record"`
	Kind       models.UploadKind `json:"kind"`
	Validation models.Validation `json:"validation"`
}

// Client extracts structured records from documents.
type Client struct {
	extractor *extract.Extractor
	llm       llm.StructuredClient
	records   storage.RecordStore
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds an extraction client over the given structured LLM client
// and record store. The record store is consulted to validate that invoices
// reference a purchase order on file.
func NewClient(structured llm.StructuredClient, records storage.RecordStore, opts ...Option) *Client {
	c := &Client{
		extractor: extract.NewExtractor(),
		llm:       structured,
		records:   records,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractDetails reads a document, extracts its text by declared type, runs
// structured extraction, and validates the result. Validation failures come
// back inside Details, not as errors: the caller decides whether to surface
// or persist.
func (c *Client) ExtractDetails(ctx context.Context, r io.Reader, declaredType string) (*Details, error) {
	text, err := c.extractor.Extract(r, declaredType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document contains no extractable text")
	}
	c.logger.Debug("document text extracted",
		zap.Int("chars", len(text)),
		zap.String("preview", utils.Truncate(text, 120)))

	rec, err := c.llm.ExtractRecord(ctx, llm.ExtractionPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("structured extraction: %w", err)
	}
	normalize(rec)
	kind := rec.Kind()

	validation, err := c.validate(ctx, rec, kind)
	if err != nil {
		return nil, err
	}
	if !validation.OK() {
		c.logger.Info("extracted record failed validation",
			zap.String("kind", string(kind)),
			zap.String("status", string(validation.Status)))
	}
	return &Details{Record: rec, Kind: kind, Validation: validation}, nil
}

func (c *Client) validate(ctx context.Context, rec *models.Record, kind models.UploadKind) (models.Validation, error) {
	key := rec.PONumberKey()
	if key == "" {
		return models.ValidationFailure(models.ValidationMissingBusinessKey,
			"No PO Number found in the document; it cannot be stored."), nil
	}
	if kind == models.KindInvoice {
		ok, err := c.records.HasPurchaseOrder(ctx, key)
		if err != nil {
			return models.Validation{}, fmt.Errorf("check purchase order: %w", err)
		}
		if !ok {
			return models.ValidationFailure(models.ValidationUnmatchedPurchaseOrder,
				"Invoice references PO Number %s, but no matching purchase order is on file.", key), nil
		}
	}
	return models.Validation{Status: models.ValidationOK}, nil
}

// normalize collapses whitespace-only extracted values to absent. Providers
// sometimes return "" or "  " instead of omitting a field; downstream code
// relies on nil meaning absent.
func normalize(rec *models.Record) {
	fields := []**string{
		&rec.PONumber, &rec.InvoiceNumber, &rec.OrderDate, &rec.CustomerName,
		&rec.CustomerContactNumber, &rec.CustomerContactEmail, &rec.CustomerAddress,
		&rec.Date, &rec.DueDate, &rec.TotalAmount, &rec.Currency, &rec.Supplier,
	}
	for _, f := range fields {
		normalizeField(f)
	}
	for i := range rec.Items {
		normalizeField(&rec.Items[i].Name)
		normalizeField(&rec.Items[i].Price)
		normalizeField(&rec.Items[i].Quantity)
		normalizeField(&rec.Items[i].Subtotal)
	}
}

func normalizeField(f **string) {
	if *f == nil {
		return
	}
	trimmed := strings.TrimSpace(**f)
	if trimmed == "" {
		*f = nil
		return
	}
	*f = &trimmed
}
