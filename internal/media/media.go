// Package media turns uploaded images into data URLs stored on complaints
// and profiles.
package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "nagarbot/internal/errors"
)

const (
	// ChatImageLimit caps attachments sent in the conversation.
	ChatImageLimit int64 = 5 << 20
	// ProfileImageLimit caps profile pictures.
	ProfileImageLimit int64 = 2 << 20
)

// Ingest validates an image and encodes it as a data URL.
//
// The content type is sniffed from the bytes, never taken from the
// client. Anything that does not sniff as image/* is rejected.
func Ingest(data []byte, limit int64) (string, error) {
	if len(data) == 0 {
		return "", apperrors.NewValidationError("image", "file is empty")
	}
	if int64(len(data)) > limit {
		return "", apperrors.NewValidationError("image", fmt.Sprintf("file exceeds %d MB", limit>>20))
	}

	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", apperrors.NewValidationError("image", "unsupported file type "+mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// IngestReader reads at most limit+1 bytes from r and calls Ingest.
func IngestReader(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return Ingest(data, limit)
}

// IsDataURL reports whether s looks like an image data URL produced by Ingest.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
}

// Decode returns the raw bytes and MIME type of a data URL.
func Decode(dataURL string) ([]byte, string, error) {
	if !IsDataURL(dataURL) {
		return nil, "", apperrors.NewValidationError("image", "not an image data URL")
	}
	header, payload, _ := strings.Cut(dataURL, ";base64,")
	mime := strings.TrimPrefix(header, "data:")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", apperrors.NewValidationError("image", "corrupt base64 payload")
	}
	return data, mime, nil
}
