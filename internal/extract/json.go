package extract

import (
	"encoding/json"
	"fmt"
)

// extractJSON re-serializes the parsed document to a compact JSON string.
// This acts as a structured-text fallback for the extraction model.
func extractJSON(content []byte) (string, error) {
	var data any
	if err := json.Unmarshal(content, &data); err != nil {
		return "", fmt.Errorf("parse JSON: %w", err)
	}
	out, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("serialize JSON: %w", err)
	}
	return string(out), nil
}
