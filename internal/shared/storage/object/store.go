package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ObjectStore saves and retrieves binary objects: uploaded résumés, OCR text
// and published site pages.
type ObjectStore interface {
	// Save stores r under a per-user key derived from fileName.
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey stores r at exactly storageKey.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// Presigner is implemented by stores that can hand out direct upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, storageKey, contentType string, expires time.Duration) (string, error)
}

var (
	// ErrPresignUnsupported is returned when the configured store cannot presign.
	ErrPresignUnsupported = errors.New("object store does not support presigned uploads")
	ErrNotFound           = errors.New("object not found")
)

// ReadAll opens storageKey and reads it fully, up to limit bytes when limit > 0.
func ReadAll(ctx context.Context, store ObjectStore, storageKey string, limit int64) ([]byte, error) {
	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if limit > 0 {
		r = io.LimitReader(body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errors.New("object exceeds size limit")
	}
	return data, nil
}
