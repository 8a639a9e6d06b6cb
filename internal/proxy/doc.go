// Package proxy provides the client for the hosted LLM proxy service.
//
// The proxy exposes a single POST endpoint. The operation is selected by the
// request_type header and every request is authenticated with a static
// x-api-key header:
//   - call: text generation (Client.Generate)
//   - retrieve: RAG context lookup (Client.Retrieve)
//   - model_info: model introspection (Client.ModelInfo)
//   - add: document ingestion as a file or raw text (Client.UploadFile,
//     Client.UploadText)
//
// Generation, retrieval and model info send JSON bodies. Uploads send a
// multipart body with a JSON params part and either a file or a text part.
//
// # Result Envelope
//
// Operations never return a Go error for expected failures. Every call returns
// a Result that is either the server's JSON payload, decoded verbatim, or an
// *Error carrying a message and, when a response was received, the HTTP
// status. Errors unwrap to ErrLocal, ErrNetwork, ErrHTTPStatus or
// ErrInvalidResponse so callers can classify them with errors.Is.
//
// # Retry Behaviour
//
// HTTP 429/500/502/503/504 responses and transport failures are retried with
// exponential backoff (base 500ms, doubling) for at most 3 attempts in total.
// A Retry-After header on 429/503 replaces the computed delay. Other 4xx
// responses return immediately. Each attempt, from connection setup through
// reading the response body, is bounded by the configured timeout, so the
// worst case for one operation is reported by Client.WorstCaseDuration.
// Cancelling the context during a backoff wait returns the outcome of the
// attempt that already finished, HTTP status included.
//
// # Concurrency
//
// A Client is safe for concurrent use. Its pooled transport is the only
// shared mutable state.
package proxy
