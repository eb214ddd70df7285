package extraction

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/seikyu/internal/llm"
	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/storage"
)

type stubRecordStore struct {
	storage.RecordStore
	poNumbers map[string]bool
}

func (s *stubRecordStore) HasPurchaseOrder(ctx context.Context, poNumber string) (bool, error) {
	return s.poNumbers[poNumber], nil
}

func TestExtractDetails_PurchaseOrder(t *testing.T) {
	mock := &llm.MockClient{
		RecordFunc: func(prompt string) (*models.Record, error) {
			return &models.Record{
				PONumber:  models.Ptr("po-100"),
				OrderDate: models.Ptr("2026-01-02"),
			}, nil
		},
	}
	client := NewClient(mock, &stubRecordStore{})

	details, err := client.ExtractDetails(context.Background(),
		strings.NewReader(`{"po_number": "PO-100"}`), "json")
	if err != nil {
		t.Fatal(err)
	}
	if details.Kind != models.KindPurchaseOrder {
		t.Errorf("kind: got %s", details.Kind)
	}
	if !details.Validation.OK() {
		t.Errorf("expected valid record, got %+v", details.Validation)
	}
	if len(mock.Prompts) != 1 || !strings.Contains(mock.Prompts[0], "PO-100") {
		t.Error("extraction prompt must carry the document text")
	}
}

func TestExtractDetails_InvoiceNeedsMatchingPO(t *testing.T) {
	mock := &llm.MockClient{
		RecordFunc: func(prompt string) (*models.Record, error) {
			return &models.Record{
				PONumber:      models.Ptr("PO-100"),
				InvoiceNumber: models.Ptr("INV-55"),
			}, nil
		},
	}

	t.Run("unmatched", func(t *testing.T) {
		client := NewClient(mock, &stubRecordStore{})
		details, err := client.ExtractDetails(context.Background(),
			strings.NewReader(`{"invoice_number": "INV-55"}`), "json")
		if err != nil {
			t.Fatal(err)
		}
		if details.Validation.Status != models.ValidationUnmatchedPurchaseOrder {
			t.Errorf("status: got %s", details.Validation.Status)
		}
		if !strings.Contains(details.Validation.Message, "PO-100") {
			t.Errorf("message should name the PO number: %q", details.Validation.Message)
		}
	})

	t.Run("matched", func(t *testing.T) {
		client := NewClient(mock, &stubRecordStore{poNumbers: map[string]bool{"PO-100": true}})
		details, err := client.ExtractDetails(context.Background(),
			strings.NewReader(`{"invoice_number": "INV-55"}`), "json")
		if err != nil {
			t.Fatal(err)
		}
		if !details.Validation.OK() {
			t.Errorf("expected valid invoice, got %+v", details.Validation)
		}
		if details.Kind != models.KindInvoice {
			t.Errorf("kind: got %s", details.Kind)
		}
	})
}

func TestExtractDetails_MissingBusinessKey(t *testing.T) {
	mock := &llm.MockClient{
		RecordFunc: func(prompt string) (*models.Record, error) {
			return &models.Record{CustomerName: models.Ptr("Acme")}, nil
		},
	}
	client := NewClient(mock, &stubRecordStore{})

	details, err := client.ExtractDetails(context.Background(),
		strings.NewReader(`{"customer": "Acme"}`), "json")
	if err != nil {
		t.Fatal(err)
	}
	if details.Validation.Status != models.ValidationMissingBusinessKey {
		t.Errorf("status: got %s", details.Validation.Status)
	}
}

func TestExtractDetails_NormalizesBlankFields(t *testing.T) {
	mock := &llm.MockClient{
		RecordFunc: func(prompt string) (*models.Record, error) {
			return &models.Record{
				PONumber:     models.Ptr("PO-1"),
				CustomerName: models.Ptr("   "),
				Supplier:     models.Ptr(" Initech "),
				Items:        []models.Item{{Name: models.Ptr(""), Quantity: models.Ptr("2")}},
			}, nil
		},
	}
	client := NewClient(mock, &stubRecordStore{})

	details, err := client.ExtractDetails(context.Background(),
		strings.NewReader(`{}`), "json")
	if err != nil {
		t.Fatal(err)
	}
	rec := details.Record
	if rec.CustomerName != nil {
		t.Error("whitespace-only field must normalize to absent")
	}
	if models.Deref(rec.Supplier) != "Initech" {
		t.Errorf("field not trimmed: %q", models.Deref(rec.Supplier))
	}
	if rec.Items[0].Name != nil {
		t.Error("blank item field must normalize to absent")
	}
}

func TestExtractDetails_UnsupportedFormat(t *testing.T) {
	client := NewClient(&llm.MockClient{}, &stubRecordStore{})
	if _, err := client.ExtractDetails(context.Background(),
		strings.NewReader("hello"), "exe"); err == nil {
		t.Error("unsupported declared type must fail before reaching the model")
	}
}

func TestExtractDetails_EmptyDocument(t *testing.T) {
	client := NewClient(&llm.MockClient{}, &stubRecordStore{})
	if _, err := client.ExtractDetails(context.Background(),
		strings.NewReader(""), "csv"); err == nil {
		t.Error("document with no extractable text must fail")
	}
}
