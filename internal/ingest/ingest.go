// Package ingest runs the full document pipeline: extract, validate, persist,
// then index. Persistence is the gate; indexing failures never roll back a
// saved record.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/extraction"
	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/storage"
)

// Extractor turns a document into a validated record.
type Extractor interface {
	ExtractDetails(ctx context.Context, r io.Reader, declaredType string) (*extraction.Details, error)
}

// RecordIndexer adds a saved record to the semantic index.
type RecordIndexer interface {
	Add(ctx context.Context, rec *models.Record) error
}

// KeywordIndexer adds a saved record to the lexical index.
type KeywordIndexer interface {
	IndexRecord(ctx context.Context, rec *models.Record) error
}

// Result is the outcome of ingesting one document. Saved is false for both
// validation failures and duplicates; Message says which.
type Result struct {
	Kind    models.UploadKind `json:"kind"`
	Saved   bool              `json:"saved"`
	Message string            `json:"message"`
	Record  *models.Record    `json:"record,omitempty"`
}

// Ingestor wires the pipeline stages together.
type Ingestor struct {
	extractor Extractor
	records   storage.RecordStore
	vectors   RecordIndexer
	keywords  KeywordIndexer
	logger    *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingestor) { i.logger = l }
}

// WithKeywordIndexer enables lexical indexing of saved records.
func WithKeywordIndexer(k KeywordIndexer) Option {
	return func(i *Ingestor) { i.keywords = k }
}

// NewIngestor builds the pipeline. The vector indexer may be nil, in which
// case saved records are only persisted.
func NewIngestor(extractor Extractor, records storage.RecordStore, vectors RecordIndexer, opts ...Option) *Ingestor {
	i := &Ingestor{
		extractor: extractor,
		records:   records,
		vectors:   vectors,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest processes one document: extraction and validation first, then the
// duplicate-guarded save, then indexing. Only records that actually persisted
// reach the indexes.
func (i *Ingestor) Ingest(ctx context.Context, r io.Reader, declaredType string) (*Result, error) {
	details, err := i.extractor.ExtractDetails(ctx, r, declaredType)
	if err != nil {
		return nil, err
	}
	if !details.Validation.OK() {
		return &Result{
			Kind:    details.Kind,
			Saved:   false,
			Message: details.Validation.Message,
			Record:  details.Record,
		}, nil
	}

	var saveResult storage.SaveResult
	switch details.Kind {
	case models.KindInvoice:
		saveResult, err = i.records.SaveInvoice(ctx, details.Record)
	default:
		saveResult, err = i.records.SavePurchaseOrder(ctx, details.Record)
	}
	if err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	result := &Result{
		Kind:    details.Kind,
		Saved:   saveResult.Saved,
		Message: saveResult.Message,
		Record:  details.Record,
	}
	if !saveResult.Saved {
		return result, nil
	}

	i.indexRecord(ctx, details.Record)
	return result, nil
}

// indexRecord adds a freshly saved record to the indexes. Failures are
// logged: the record is already durable and the vector index rebuilds from
// the record store on the next startup.
func (i *Ingestor) indexRecord(ctx context.Context, rec *models.Record) {
	if i.vectors != nil {
		if err := i.vectors.Add(ctx, rec); err != nil {
			i.logger.Warn("vector indexing failed for saved record",
				zap.String("po_number", models.Deref(rec.PONumber)), zap.Error(err))
		}
	}
	if i.keywords != nil {
		if err := i.keywords.IndexRecord(ctx, rec); err != nil {
			i.logger.Warn("keyword indexing failed for saved record",
				zap.String("po_number", models.Deref(rec.PONumber)), zap.Error(err))
		}
	}
}

// IngestFile ingests a document from disk, deriving the declared type from
// the file extension.
func (i *Ingestor) IngestFile(ctx context.Context, path string) (*Result, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, fmt.Errorf("cannot determine document type of %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return i.Ingest(ctx, f, ext)
}
