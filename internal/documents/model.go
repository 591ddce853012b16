package documents

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotPDF       = errors.New("only PDF documents are supported")
)

// Document is an uploaded résumé PDF owned by a user.
type Document struct {
	ID              string
	UserID          string
	FileName        string
	MimeType        string
	SizeBytes       int64
	StorageProvider string
	StorageKey      string
	// ParsedTextKey points at the OCR text saved next to the PDF once a
	// parse has run.
	ParsedTextKey string
	ParsedAt      *time.Time
	CreatedAt     time.Time
}

// Parsed reports whether OCR text has been stored for the document.
func (d Document) Parsed() bool {
	return d.ParsedTextKey != "" && d.ParsedAt != nil
}

// PresignedUpload tells the browser where to PUT the PDF.
type PresignedUpload struct {
	UploadURL        string `json:"uploadUrl"`
	S3Key            string `json:"s3Key"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// Repo persists documents. Reads are always scoped to the owning user.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	GetCurrentByUser(ctx context.Context, userID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	UpdateParsedText(ctx context.Context, userID, documentID, parsedKey string, parsedAt time.Time) error
}
