package llm

import (
	"context"

	"github.com/hyperjump/seikyu/internal/models"
)

// MockClient is a scripted client for tests. CompleteFunc and RecordFunc can
// be set per test; unset functions return zero values. Prompts records every
// prompt the client received, in order.
type MockClient struct {
	CompleteFunc func(prompt string) (string, error)
	RecordFunc   func(prompt string) (*models.Record, error)
	Prompts      []string
}

// Complete runs CompleteFunc against the prompt.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteFunc == nil {
		return "", nil
	}
	return m.CompleteFunc(prompt)
}

// ExtractRecord runs RecordFunc against the prompt.
func (m *MockClient) ExtractRecord(ctx context.Context, prompt string) (*models.Record, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.RecordFunc == nil {
		return &models.Record{}, nil
	}
	return m.RecordFunc(prompt)
}
