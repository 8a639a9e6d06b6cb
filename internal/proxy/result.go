package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrLocal           = errors.New("local precondition failed")
	ErrNetwork         = errors.New("network error")
	ErrHTTPStatus      = errors.New("http status error")
	ErrInvalidResponse = errors.New("invalid response")
)

// Error is the failure variant of a Result.
type Error struct {
	Message string
	// StatusCode is the HTTP status of the last response, or 0 when no
	// response was received.
	StatusCode int

	marker error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the marker error (ErrLocal, ErrNetwork, ErrHTTPStatus or
// ErrInvalidResponse) classifying the failure.
func (e *Error) Unwrap() error {
	return e.marker
}

// Result is the uniform return value of every client operation. Exactly one
// of Data and Failure is meaningful.
type Result struct {
	// Data is the decoded response body. Numbers are json.Number so the value
	// re-encodes to the same payload.
	Data any
	// Raw is the response body as received, without surrounding whitespace.
	Raw     json.RawMessage
	Failure *Error
}

// OK reports whether the result carries a server payload.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Decode unmarshals the success payload into target.
func (r Result) Decode(target any) error {
	if r.Failure != nil {
		return r.Failure
	}
	if len(r.Raw) == 0 {
		return errors.New("decode result: empty payload")
	}
	return json.Unmarshal(r.Raw, target)
}

// MarshalJSON renders the server payload verbatim on success and
// {"error": ..., "status_code": ...} on failure.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		payload := struct {
			Error      string `json:"error"`
			StatusCode *int   `json:"status_code"`
		}{Error: r.Failure.Message}
		if r.Failure.StatusCode != 0 {
			status := r.Failure.StatusCode
			payload.StatusCode = &status
		}
		return json.Marshal(payload)
	}
	if len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

func failure(marker error, status int, format string, args ...any) Result {
	return Result{Failure: &Error{
		Message:    fmt.Sprintf(format, args...),
		StatusCode: status,
		marker:     marker,
	}}
}

func successResult(body []byte) (Result, bool) {
	trimmed := bytes.TrimSpace(body)
	value, err := decodeJSON(trimmed)
	if err != nil {
		return Result{}, false
	}
	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return Result{Data: value, Raw: raw}, true
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return value, nil
}

// normalizeResponse folds the outcome of the final attempt into a Result.
func normalizeResponse(status int, body []byte, err error) Result {
	if err != nil {
		return failure(ErrNetwork, 0, "Network error: %v", err)
	}
	if status >= 200 && status < 300 {
		result, ok := successResult(body)
		if !ok {
			return failure(ErrInvalidResponse, status, "Invalid JSON in response")
		}
		return result
	}
	return failure(ErrHTTPStatus, status, "HTTP %d: %s", status, errorDetail(body))
}

// errorDetail prefers the "error" field of a JSON object body and falls back
// to the raw body text.
func errorDetail(body []byte) string {
	text := strings.TrimSpace(string(body))
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return text
	}
	field, ok := payload["error"]
	if !ok || string(field) == "null" {
		return text
	}
	var message string
	if err := json.Unmarshal(field, &message); err == nil {
		return message
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, field); err != nil {
		return string(field)
	}
	return compact.String()
}
