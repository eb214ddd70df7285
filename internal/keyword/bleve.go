// Package keyword provides lexical search over stored records using Bleve.
// It complements the vector index: exact matches on identifiers like PO and
// invoice numbers, with no embedding round-trip.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/vector"
)

// Document is the indexed representation of a record.
type Document struct {
	Kind          string `json:"kind"`
	PONumber      string `json:"po_number"`
	InvoiceNumber string `json:"invoice_number"`
	Customer      string `json:"customer"`
	Supplier      string `json:"supplier"`
	Content       string `json:"content"`
}

// Result is a single keyword search hit.
type Result struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Document Document `json:"document"`
}

// BleveIndex indexes records for keyword search.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused so records indexed in earlier runs stay searchable. An empty path
// creates a memory-only index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so "INV-55"
	// matches exactly.
	textFieldMapping.Analyzer = standard.Name
	for _, field := range []string{"po_number", "invoice_number", "customer", "supplier", "content"} {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("kind", keywordFieldMapping)
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexRecord indexes a record under its kind-qualified business key.
// Re-indexing the same record overwrites the previous document, so the
// operation is idempotent.
func (b *BleveIndex) IndexRecord(ctx context.Context, rec *models.Record) error {
	key := rec.BusinessKey()
	if key == "" {
		return fmt.Errorf("record has no business key")
	}
	doc := Document{
		Kind:          string(rec.Kind()),
		PONumber:      models.Deref(rec.PONumber),
		InvoiceNumber: models.Deref(rec.InvoiceNumber),
		Customer:      models.Deref(rec.CustomerName),
		Supplier:      models.Deref(rec.Supplier),
		Content:       vector.RenderRecord(rec),
	}
	return b.index.Index(string(rec.Kind())+":"+key, doc)
}

// Search runs a match query over all fields and returns up to limit results.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	search := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	search.Size = limit
	search.Fields = []string{"*"}
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{
			ID:    hit.ID,
			Score: hit.Score,
			Document: Document{
				Kind:          stringField(hit.Fields, "kind"),
				PONumber:      stringField(hit.Fields, "po_number"),
				InvoiceNumber: stringField(hit.Fields, "invoice_number"),
				Customer:      stringField(hit.Fields, "customer"),
				Supplier:      stringField(hit.Fields, "supplier"),
				Content:       stringField(hit.Fields, "content"),
			},
		}
	}
	return out, nil
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// Count returns the number of indexed documents.
func (b *BleveIndex) Count() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
