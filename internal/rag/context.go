package rag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"llmproxy/internal/proxy"
)

const contextHeader = "The following is additional context that may be helpful in answering the user's query."

// Collection is one retrieved document: its summary and the matching chunks.
type Collection struct {
	DocSummary string   `json:"doc_summary"`
	Chunks     []string `json:"chunks"`
}

// UnmarshalJSON accepts chunks of any JSON type. Non-string chunks keep their
// compact JSON text.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var raw struct {
		DocSummary json.RawMessage   `json:"doc_summary"`
		Chunks     []json.RawMessage `json:"chunks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.DocSummary = rawText(raw.DocSummary)
	c.Chunks = make([]string, 0, len(raw.Chunks))
	for _, chunk := range raw.Chunks {
		c.Chunks = append(c.Chunks, rawText(chunk))
	}
	return nil
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

// ParseContext decodes a retrieve result. The proxy answers with a JSON array
// of collections; an object wrapping the array under rag_context is accepted
// too. A failed result is returned as its error.
func ParseContext(result proxy.Result) ([]Collection, error) {
	if err := result.Err(); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(result.Raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var collections []Collection
		if err := json.Unmarshal(raw, &collections); err != nil {
			return nil, fmt.Errorf("parse rag context: %w", err)
		}
		return collections, nil
	case '{':
		var wrapped struct {
			RAGContext *[]Collection `json:"rag_context"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("parse rag context: %w", err)
		}
		if wrapped.RAGContext == nil {
			return nil, errors.New("parse rag context: response has no rag_context field")
		}
		return *wrapped.RAGContext, nil
	default:
		return nil, fmt.Errorf("parse rag context: unexpected payload %.40q", string(raw))
	}
}

// FormatContext renders collections as a numbered plain-text block that can
// be appended to a query. It returns "" when there is nothing to add.
func FormatContext(collections []Collection) string {
	if len(collections) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(contextHeader)
	for i, collection := range collections {
		docNum := strconv.Itoa(i + 1)
		b.WriteString("\n#")
		b.WriteString(docNum)
		b.WriteByte(' ')
		b.WriteString(strings.TrimSpace(collection.DocSummary))
		for j, chunk := range collection.Chunks {
			b.WriteString("\n#")
			b.WriteString(docNum)
			b.WriteByte('.')
			b.WriteString(strconv.Itoa(j + 1))
			b.WriteByte(' ')
			b.WriteString(strings.TrimSpace(chunk))
		}
	}
	return b.String()
}

// AugmentQuery appends the formatted context to query on a new line.
func AugmentQuery(query string, collections []Collection) string {
	block := FormatContext(collections)
	if block == "" {
		return query
	}
	return query + "\n" + block
}
