package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperjump/seikyu/internal/models"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAIClient creates a client from cfg, filling in defaults for BaseURL,
// Model, and Timeout.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := cfg.TimeoutSeconds
	if timeout == 0 {
		timeout = 60
	}
	return &OpenAIClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// Complete sends prompt as a single user message and returns the response text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	result, err := c.post(ctx, reqBody)
	if err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return result.Choices[0].Message.Content, nil
}

// ExtractRecord sends prompt with a JSON-schema response format matching the
// record shape and decodes the model's JSON output into a Record. Absent
// fields stay unset because the schema does not require any property.
func (c *OpenAIClient) ExtractRecord(ctx context.Context, prompt string) (*models.Record, error) {
	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "record",
				"schema": json.RawMessage(recordSchema),
			},
		},
	}
	result, err := c.post(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty extraction response")
	}
	var rec models.Record
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &rec); err != nil {
		return nil, fmt.Errorf("decode extracted record: %w", err)
	}
	return &rec, nil
}

func (c *OpenAIClient) post(ctx context.Context, reqBody map[string]any) (*chatCompletionResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// recordSchema is the JSON schema for structured record extraction. Every
// property is optional; the model is told elsewhere never to invent values.
const recordSchema = `{
  "type": "object",
  "properties": {
    "po_number": {"type": "string", "description": "the purchase order number"},
    "invoice_number": {"type": "string", "description": "the invoice number, only when the document is an invoice"},
    "order_date": {"type": "string", "description": "the order date, for purchase orders"},
    "customer_name": {"type": "string", "description": "the customer name"},
    "customer_contact_number": {"type": "string", "description": "the customer contact phone number"},
    "customer_contact_email": {"type": "string", "description": "the customer contact email"},
    "customer_address": {"type": "string", "description": "the customer address"},
    "date": {"type": "string", "description": "the date of the document"},
    "due_date": {"type": "string", "description": "the payment due date"},
    "total_amount": {"type": "string", "description": "the total amount as written on the document"},
    "currency": {"type": "string", "description": "the currency of the amounts"},
    "supplier": {"type": "string", "description": "the supplier"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "price": {"type": "string"},
          "quantity": {"type": "string"},
          "subtotal": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
