package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusError is a non-2xx response from the backend, carrying a short
// human-readable message extracted from the error body.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// errorMessage unwraps backend error bodies from their common shapes into a
// short user-facing string. Precedence: detail, then message, then the raw
// body as a last resort. Raw stack traces and JSON blobs are never shown
// except as that fallback.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg := stringify(envelope.Detail); msg != "" {
			return msg
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}

	return trimmed
}

// stringify renders a raw error detail: plain strings come back unquoted,
// anything structured (FastAPI validation errors are a list of objects) is
// compacted to one line.
func stringify(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
