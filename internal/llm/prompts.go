package llm

import (
	"fmt"
	"strings"

	"github.com/hyperjump/seikyu/internal/models"
)

// ExtractionPrompt builds the structured-extraction prompt for a document's
// text. The instruction to leave missing details out is load-bearing: absence
// must come back as absence, never a placeholder.
func ExtractionPrompt(text string) string {
	return fmt.Sprintf(`Extract the invoice or purchase order details from the text below using the provided schema.
If a detail cannot be found in the text, leave it out entirely. Never invent, guess, or fill in placeholder values for missing details.
Only include invoice_number when the document is an invoice.

text: %s`, text)
}

// ClassificationPrompt asks the model to classify a user query into exactly
// one routing token, given the conversation so far.
func ClassificationPrompt(query, history string) string {
	return fmt.Sprintf(`You are classifying a user query for an invoice assistant. Reply with exactly one of these tokens and nothing else:
- %s: the query is about invoices or purchase orders and can be answered from the conversation history alone.
- %s: the query is about invoices or purchase orders and requires looking up stored records.
- %s: the user wants an email drafted.

Conversation history:
%s

Query: %s`, models.TokenInContext, models.TokenRetrievalRequired, models.TokenEmailDraft, history, query)
}

// RetrievalAnswerPrompt builds the retrieval-augmented answer prompt from the
// query, the retrieved record texts, and the conversation history.
func RetrievalAnswerPrompt(query string, data []string, history string) string {
	return fmt.Sprintf(`You are an invoice assistant. Answer the user's query using the invoice data below and the conversation history. If the data does not contain the answer, say so instead of guessing.

Invoice data:
%s

Conversation history:
%s

Query: %s`, strings.Join(data, "\n\n"), history, query)
}

// InContextAnswerPrompt builds the answer prompt when no retrieval is needed.
func InContextAnswerPrompt(query, history string) string {
	return RetrievalAnswerPrompt(query, nil, history)
}

// EmailDraftPrompt builds the email-composition prompt.
func EmailDraftPrompt(query, history string) string {
	return fmt.Sprintf(`You are an invoice assistant. Draft a professional email based on the user's request and the conversation history. Include a subject line and a body, ready to send.

Conversation history:
%s

Request: %s`, history, query)
}
