// Package llm provides the chat-completion and structured-extraction
// capabilities consumed by the pipeline, backed by an OpenAI-compatible
// chat-completions API.
package llm

import (
	"context"

	"github.com/hyperjump/seikyu/internal/models"
)

// ChatClient is the chat-completion capability: prompt text in, response text out.
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StructuredClient is the structured-extraction capability: prompt text in,
// typed record out. Implementations must honor "leave absent, never
// fabricate": fields not present in the source come back unset.
type StructuredClient interface {
	ExtractRecord(ctx context.Context, prompt string) (*models.Record, error)
}

// Client combines both capabilities; the OpenAI client implements it.
type Client interface {
	ChatClient
	StructuredClient
}

// ClientConfig holds provider settings.
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}
