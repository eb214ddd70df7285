package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/seikyu/internal/extraction"
	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/storage"
)

type stubExtractor struct {
	details *extraction.Details
	err     error
}

func (s *stubExtractor) ExtractDetails(ctx context.Context, r io.Reader, declaredType string) (*extraction.Details, error) {
	return s.details, s.err
}

type stubStore struct {
	storage.RecordStore
	invoices       int
	purchaseOrders int
	result         storage.SaveResult
}

func (s *stubStore) SaveInvoice(ctx context.Context, rec *models.Record) (storage.SaveResult, error) {
	s.invoices++
	return s.result, nil
}

func (s *stubStore) SavePurchaseOrder(ctx context.Context, rec *models.Record) (storage.SaveResult, error) {
	s.purchaseOrders++
	return s.result, nil
}

type stubIndexer struct {
	added []string
	err   error
}

func (s *stubIndexer) Add(ctx context.Context, rec *models.Record) error {
	s.added = append(s.added, rec.BusinessKey())
	return s.err
}

func (s *stubIndexer) IndexRecord(ctx context.Context, rec *models.Record) error {
	return s.Add(ctx, rec)
}

func validDetails() *extraction.Details {
	return &extraction.Details{
		Record: &models.Record{
			PONumber:      models.Ptr("PO-100"),
			InvoiceNumber: models.Ptr("INV-55"),
		},
		Kind:       models.KindInvoice,
		Validation: models.Validation{Status: models.ValidationOK},
	}
}

func TestIngest_SavedRecordIsIndexed(t *testing.T) {
	store := &stubStore{result: storage.SaveResult{Saved: true, Message: "saved"}}
	vectors := &stubIndexer{}
	keywords := &stubIndexer{}
	ing := NewIngestor(&stubExtractor{details: validDetails()}, store, vectors,
		WithKeywordIndexer(keywords))

	result, err := ing.Ingest(context.Background(), strings.NewReader("doc"), "json")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Saved {
		t.Fatalf("expected save, got %q", result.Message)
	}
	if store.invoices != 1 || store.purchaseOrders != 0 {
		t.Errorf("invoice must go to the invoices table: %d/%d", store.invoices, store.purchaseOrders)
	}
	if len(vectors.added) != 1 || vectors.added[0] != "INV-55" {
		t.Errorf("vector index not updated: %v", vectors.added)
	}
	if len(keywords.added) != 1 {
		t.Error("keyword index not updated")
	}
}

func TestIngest_PurchaseOrderDispatch(t *testing.T) {
	store := &stubStore{result: storage.SaveResult{Saved: true}}
	details := &extraction.Details{
		Record:     &models.Record{PONumber: models.Ptr("PO-200")},
		Kind:       models.KindPurchaseOrder,
		Validation: models.Validation{Status: models.ValidationOK},
	}
	ing := NewIngestor(&stubExtractor{details: details}, store, &stubIndexer{})

	if _, err := ing.Ingest(context.Background(), strings.NewReader("doc"), "pdf"); err != nil {
		t.Fatal(err)
	}
	if store.purchaseOrders != 1 || store.invoices != 0 {
		t.Errorf("purchase order must go to the purchase_orders table: %d/%d", store.invoices, store.purchaseOrders)
	}
}

func TestIngest_ValidationFailureSkipsSaveAndIndex(t *testing.T) {
	store := &stubStore{result: storage.SaveResult{Saved: true}}
	vectors := &stubIndexer{}
	details := validDetails()
	details.Validation = models.ValidationFailure(models.ValidationMissingBusinessKey, "no PO number")
	ing := NewIngestor(&stubExtractor{details: details}, store, vectors)

	result, err := ing.Ingest(context.Background(), strings.NewReader("doc"), "json")
	if err != nil {
		t.Fatal(err)
	}
	if result.Saved {
		t.Error("invalid record must not save")
	}
	if result.Message != "no PO number" {
		t.Errorf("message: got %q", result.Message)
	}
	if store.invoices+store.purchaseOrders != 0 {
		t.Error("invalid record must not reach the store")
	}
	if len(vectors.added) != 0 {
		t.Error("invalid record must not reach the index")
	}
}

func TestIngest_DuplicateSkipsIndex(t *testing.T) {
	store := &stubStore{result: storage.SaveResult{Saved: false, Message: "Duplicate detected"}}
	vectors := &stubIndexer{}
	ing := NewIngestor(&stubExtractor{details: validDetails()}, store, vectors)

	result, err := ing.Ingest(context.Background(), strings.NewReader("doc"), "json")
	if err != nil {
		t.Fatal(err)
	}
	if result.Saved {
		t.Error("duplicate must report not saved")
	}
	if len(vectors.added) != 0 {
		t.Error("duplicate must not be re-indexed")
	}
}

func TestIngest_IndexFailureDoesNotFailIngest(t *testing.T) {
	store := &stubStore{result: storage.SaveResult{Saved: true}}
	vectors := &stubIndexer{err: io.ErrClosedPipe}
	ing := NewIngestor(&stubExtractor{details: validDetails()}, store, vectors)

	result, err := ing.Ingest(context.Background(), strings.NewReader("doc"), "json")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Saved {
		t.Error("save must stand even when indexing fails")
	}
}

func TestIngestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(`{"po_number":"PO-1"}`), 0644); err != nil {
		t.Fatal(err)
	}
	store := &stubStore{result: storage.SaveResult{Saved: true}}
	ing := NewIngestor(&stubExtractor{details: validDetails()}, store, &stubIndexer{})

	if _, err := ing.IngestFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	if _, err := ing.IngestFile(context.Background(), filepath.Join(t.TempDir(), "noext")); err == nil {
		t.Error("file without extension must fail")
	}
}
