package proxy

import (
	"encoding/json"
	"fmt"
)

type requestType string

const (
	requestTypeCall      requestType = "call"
	requestTypeRetrieve  requestType = "retrieve"
	requestTypeModelInfo requestType = "model_info"
	requestTypeAdd       requestType = "add"
)

const (
	headerAPIKey      = "x-api-key"
	headerRequestType = "request_type"
	headerContentType = "Content-Type"
)

const (
	DefaultSessionID    = "GenericSession"
	DefaultRAGThreshold = 0.5
	DefaultRAGK         = 5
	DefaultStrategy     = "smart"
)

// Ptr returns a pointer to v. Use it to set optional request fields.
func Ptr[T any](v T) *T {
	return &v
}

// GenerateRequest is the body of a call request. Nil optional fields are
// left out of the transmitted JSON entirely.
type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Query  string `json:"query"`

	Temperature  *float64 `json:"temperature,omitempty"`
	LastK        *int     `json:"lastk,omitempty"`
	SessionID    *string  `json:"session_id,omitempty"`
	RAGThreshold *float64 `json:"rag_threshold,omitempty"`
	RAGUsage     *bool    `json:"rag_usage,omitempty"`
	RAGK         *int     `json:"rag_k,omitempty"`
}

// NewGenerateRequest returns a request with the service defaults for
// session_id, rag_threshold, rag_usage and rag_k filled in. Temperature and
// LastK stay unset.
func NewGenerateRequest(model, system, query string) GenerateRequest {
	return GenerateRequest{
		Model:        model,
		System:       system,
		Query:        query,
		SessionID:    Ptr(DefaultSessionID),
		RAGThreshold: Ptr(DefaultRAGThreshold),
		RAGUsage:     Ptr(false),
		RAGK:         Ptr(DefaultRAGK),
	}
}

// RetrieveRequest is the body of a retrieve request. Every field is always
// transmitted.
type RetrieveRequest struct {
	Query        string  `json:"query"`
	SessionID    string  `json:"session_id"`
	RAGThreshold float64 `json:"rag_threshold"`
	RAGK         int     `json:"rag_k"`
}

// UploadFileRequest describes a document upload from the local filesystem.
type UploadFileRequest struct {
	Path      string
	SessionID string
	// MIMEType is inferred from the file extension when empty.
	MIMEType    string
	Description *string
	Strategy    *string
}

// NewUploadFileRequest returns a file upload using the default strategy.
func NewUploadFileRequest(path, sessionID string) UploadFileRequest {
	return UploadFileRequest{
		Path:      path,
		SessionID: sessionID,
		Strategy:  Ptr(DefaultStrategy),
	}
}

// UploadTextRequest describes an upload of raw text content.
type UploadTextRequest struct {
	Text        string
	SessionID   string
	Description *string
	Strategy    *string
}

// NewUploadTextRequest returns a text upload using the default strategy.
func NewUploadTextRequest(text, sessionID string) UploadTextRequest {
	return UploadTextRequest{
		Text:      text,
		SessionID: sessionID,
		Strategy:  Ptr(DefaultStrategy),
	}
}

type uploadParams struct {
	Description *string `json:"description,omitempty"`
	SessionID   string  `json:"session_id"`
	Strategy    *string `json:"strategy,omitempty"`
}

// envelope is one prepared POST. The body is kept in memory so every retry
// attempt sends identical bytes.
type envelope struct {
	requestType requestType
	contentType string
	body        []byte
}

func jsonEnvelope(kind requestType, payload any) (envelope, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("encode %s body: %w", kind, err)
	}
	return envelope{
		requestType: kind,
		contentType: mimeJSON,
		body:        encoded,
	}, nil
}
