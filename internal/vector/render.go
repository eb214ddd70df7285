package vector

import (
	"fmt"
	"strings"

	"github.com/hyperjump/seikyu/internal/models"
)

// renderField returns the value for the rendered record text, "N/A" when absent.
func renderField(s *string) string {
	if !models.Present(s) {
		return "N/A"
	}
	return strings.TrimSpace(*s)
}

// RenderRecord produces the deterministic textual rendering of a record that
// is embedded and returned from queries: fixed field order, "N/A" for absent
// scalars, one line per item, "No items listed" when there are none.
func RenderRecord(rec *models.Record) string {
	var items string
	if len(rec.Items) == 0 {
		items = "No items listed"
	} else {
		lines := make([]string, 0, len(rec.Items))
		for _, it := range rec.Items {
			lines = append(lines, fmt.Sprintf("- %s (Qty: %s, Price: %s, Subtotal: %s)",
				renderField(it.Name), renderField(it.Quantity), renderField(it.Price), renderField(it.Subtotal)))
		}
		items = strings.Join(lines, "\n")
	}

	date := rec.Date
	if !models.Present(date) {
		date = rec.OrderDate
	}

	return fmt.Sprintf(`PO Number: %s
Invoice Number: %s
Customer Name: %s
Contact Number: %s
Email: %s
Address: %s
Date: %s
Due Date: %s
Total Amount: %s %s
Supplier: %s

Items:
%s`,
		renderField(rec.PONumber),
		renderField(rec.InvoiceNumber),
		renderField(rec.CustomerName),
		renderField(rec.CustomerContactNumber),
		renderField(rec.CustomerContactEmail),
		renderField(rec.CustomerAddress),
		renderField(date),
		renderField(rec.DueDate),
		renderField(rec.TotalAmount),
		renderField(rec.Currency),
		renderField(rec.Supplier),
		items,
	)
}
