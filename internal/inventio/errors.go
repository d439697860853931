package inventio

import (
	"encoding/json"
	"fmt"
)

// Error represents a failure to talk to the Inventio API.
type Error struct {
	URL        string // token redacted
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("inventio error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("inventio error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// APIError is returned when Inventio answers with an <error> document.
// The API reports failures with HTTP 200, so this is only visible after decoding.
type APIError struct {
	Stream  string
	Company string
	Message string
}

func (e *APIError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("inventio API error: %s", e.Message)
	}
	return fmt.Sprintf("inventio API error for endpoint %s (company %s): %s", e.Stream, e.Company, e.Message)
}

// errorMessage renders the content of an <error> element.
func errorMessage(v any) string {
	switch t := v.(type) {
	case nil:
		return "unknown error"
	case string:
		return t
	case map[string]any:
		if text, ok := t["#text"].(string); ok && len(t) == 1 {
			return text
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
