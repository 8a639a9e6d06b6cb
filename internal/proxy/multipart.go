package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
)

const (
	partParams = "params"
	partFile   = "file"
	partText   = "text"

	mimeJSON        = "application/json"
	mimePDF         = "application/pdf"
	mimeOctetStream = "application/octet-stream"
	mimeText        = "application/text"
)

// InferMIMEType returns application/pdf for .pdf paths and
// application/octet-stream for everything else.
func InferMIMEType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return mimePDF
	}
	return mimeOctetStream
}

// multipartEnvelope builds an add request holding the JSON params part and a
// single payload part.
func multipartEnvelope(params uploadParams, name, contentType string, payload io.Reader) (envelope, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return envelope{}, fmt.Errorf("encode params: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writePart(writer, partParams, mimeJSON, bytes.NewReader(encoded)); err != nil {
		return envelope{}, err
	}
	if err := writePart(writer, name, contentType, payload); err != nil {
		return envelope{}, err
	}
	if err := writer.Close(); err != nil {
		return envelope{}, fmt.Errorf("close multipart writer: %w", err)
	}
	return envelope{
		requestType: requestTypeAdd,
		contentType: writer.FormDataContentType(),
		body:        body.Bytes(),
	}, nil
}

// writePart adds a form-data part without a filename, matching what the
// proxy expects for both the params and payload parts.
func writePart(writer *multipart.Writer, name, contentType string, content io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, name))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", name, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("write %s part: %w", name, err)
	}
	return nil
}
