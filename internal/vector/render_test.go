package vector

import (
	"strings"
	"testing"

	"github.com/hyperjump/seikyu/internal/models"
)

func TestRenderRecord(t *testing.T) {
	rec := &models.Record{
		PONumber:      models.Ptr("PO-100"),
		InvoiceNumber: models.Ptr("INV-55"),
		CustomerName:  models.Ptr("Acme Corp"),
		Date:          models.Ptr("2026-01-15"),
		DueDate:       models.Ptr("2026-02-15"),
		TotalAmount:   models.Ptr("$250.00"),
		Currency:      models.Ptr("USD"),
		Supplier:      models.Ptr("Initech"),
		Items: []models.Item{
			{Name: models.Ptr("Widget"), Price: models.Ptr("$100.00"), Quantity: models.Ptr("2"), Subtotal: models.Ptr("$200.00")},
		},
	}
	text := RenderRecord(rec)

	for _, want := range []string{
		"PO Number: PO-100",
		"Invoice Number: INV-55",
		"Total Amount: $250.00 USD",
		"- Widget (Qty: 2, Price: $100.00, Subtotal: $200.00)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}
}

func TestRenderRecord_Absences(t *testing.T) {
	rec := &models.Record{PONumber: models.Ptr("PO-1")}
	text := RenderRecord(rec)

	if !strings.Contains(text, "Invoice Number: N/A") {
		t.Error("absent scalar should render as N/A")
	}
	if !strings.Contains(text, "No items listed") {
		t.Error("empty items should render as No items listed")
	}
}

func TestRenderRecord_OrderDateFallback(t *testing.T) {
	rec := &models.Record{
		PONumber:  models.Ptr("PO-1"),
		OrderDate: models.Ptr("2026-03-01"),
	}
	if !strings.Contains(RenderRecord(rec), "Date: 2026-03-01") {
		t.Error("purchase order date should fill the Date line")
	}
}

func TestRenderRecord_Deterministic(t *testing.T) {
	rec := &models.Record{
		PONumber: models.Ptr("PO-2"),
		Items: []models.Item{
			{Name: models.Ptr("A")},
			{Name: models.Ptr("B")},
		},
	}
	if RenderRecord(rec) != RenderRecord(rec) {
		t.Error("rendering must be deterministic")
	}
}
