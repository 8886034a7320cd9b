package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mzheleznov/profilehub/internal/common"
)

// PresignedUploader PUTs payloads to presigned object-storage URLs,
// reporting progress as the request body is consumed.
type PresignedUploader struct {
	http *http.Client
}

// NewPresignedUploader constructs an uploader. Uploads carry their own
// deadline through ctx, so the underlying client has no fixed timeout.
func NewPresignedUploader() *PresignedUploader {
	return &PresignedUploader{http: &http.Client{}}
}

// Put uploads payload to url. The progress callback, when non-nil, is
// invoked as bytes are read off the payload, and once more on completion.
func (u *PresignedUploader) Put(ctx context.Context, url, contentType string, payload []byte, progress ProgressFunc) error {
	total := int64(len(payload))

	body := &progressReader{
		r:        bytes.NewReader(payload),
		total:    total,
		progress: progress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("%w: build upload request: %v", common.ErrTransfer, err)
	}
	req.ContentLength = total
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransfer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: upload failed: %s: %s", common.ErrTransfer, resp.Status, string(b))
	}

	if progress != nil {
		progress(total, total)
	}
	return nil
}

// progressReader counts bytes as the HTTP client drains the request body.
type progressReader struct {
	r           io.Reader
	total       int64
	transferred int64
	progress    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.transferred += int64(n)
		if p.progress != nil {
			p.progress(p.transferred, p.total)
		}
	}
	return n, err
}
