// Package upload implements the profile-image upload pipeline: payload
// acquisition from several source kinds, transfer to provider-issued
// presigned URLs with progress reporting, and post-transfer confirmation
// against the profile record.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mzheleznov/profilehub/internal/common"
)

// PayloadSource yields the raw image bytes to upload. Binary may be slow
// (network fetch, large file) and must honor ctx.
type PayloadSource interface {
	// Binary returns the full payload.
	Binary(ctx context.Context) ([]byte, error)

	// Name is a display name for the payload, used to pick a file extension.
	Name() string
}

// NetworkSource fetches the payload from a URL.
type NetworkSource struct {
	URL    string
	Client *http.Client
}

func (s *NetworkSource) Name() string {
	return filepath.Base(s.URL)
}

func (s *NetworkSource) Binary(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad payload url: %s", common.ErrValidation, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch payload: %s", common.ErrTransfer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: fetch payload: unexpected status %d", common.ErrTransfer, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %s", common.ErrTransfer, err)
	}
	return data, nil
}

// FileSource reads the payload from the local filesystem.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string {
	return filepath.Base(s.Path)
}

func (s *FileSource) Binary(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read payload file: %s", common.ErrTransfer, err)
	}
	return data, nil
}

// Base64Source decodes an in-memory base64 payload. A data-URL prefix
// ("data:image/png;base64,") is tolerated and stripped.
type Base64Source struct {
	Data     string
	Filename string
}

func (s *Base64Source) Name() string {
	if s.Filename != "" {
		return s.Filename
	}
	return "payload"
}

func (s *Base64Source) Binary(ctx context.Context) ([]byte, error) {
	encoded := s.Data
	if strings.HasPrefix(encoded, "data:") {
		if _, rest, ok := strings.Cut(encoded, ","); ok {
			encoded = rest
		}
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64 payload: %s", common.ErrValidation, err)
	}
	return data, nil
}

// DetectMIME sniffs the payload's content type and picks a matching file
// extension. Unrecognized content defaults to JPEG, the dominant format for
// profile pictures.
func DetectMIME(data []byte) (contentType, ext string) {
	contentType = http.DetectContentType(data)
	switch contentType {
	case "image/png":
		return contentType, "png"
	case "image/gif":
		return contentType, "gif"
	case "image/webp":
		return contentType, "webp"
	case "image/jpeg":
		return contentType, "jpg"
	default:
		return "image/jpeg", "jpg"
	}
}
