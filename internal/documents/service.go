package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/shared/storage/object"
)

const (
	MaxSizeBytes   = 10 << 20
	PDFContentType = "application/pdf"

	presignExpires = 15 * time.Minute
	uploadsPrefix  = "uploads"
	parsedSuffix   = ".ocr.txt"
)

var pdfMagic = []byte("%PDF-")

// Service contains business logic for documents.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
	// StorageProvider is recorded on each document ("local" or "s3").
	StorageProvider string
	Now             func() time.Time
}

// Upload checks the PDF signature, saves the file and records the document.
func (s *Service) Upload(ctx context.Context, userId, fileName string, r io.Reader) (Document, error) {
	if strings.TrimSpace(fileName) == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if !bytes.Equal(head[:n], pdfMagic) {
		return Document{}, ErrNotPDF
	}

	storageKey, size, _, err := s.Store.Save(ctx, userId, fileName, io.MultiReader(bytes.NewReader(head[:n]), r))
	if err != nil {
		return Document{}, err
	}
	if size > MaxSizeBytes {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, MaxSizeBytes)
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userId,
		FileName:        fileName,
		MimeType:        PDFContentType,
		SizeBytes:       size,
		StorageProvider: s.provider(),
		StorageKey:      storageKey,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Presign reserves a key under the caller's namespace and returns a direct
// upload URL for it.
func (s *Service) Presign(ctx context.Context, userId, fileName, contentType string, sizeBytes int64) (PresignedUpload, error) {
	presigner, ok := s.Store.(object.Presigner)
	if !ok {
		return PresignedUpload{}, object.ErrPresignUnsupported
	}
	if contentType != PDFContentType {
		return PresignedUpload{}, ErrNotPDF
	}
	if sizeBytes <= 0 || sizeBytes > MaxSizeBytes {
		return PresignedUpload{}, fmt.Errorf("%w: sizeBytes exceeds limit", ErrInvalidInput)
	}
	sanitized, err := object.CleanFileName(fileName)
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("%w: invalid fileName", ErrInvalidInput)
	}

	key := path.Join(userPrefix(userId), uuid.NewString(), sanitized)
	url, err := presigner.PresignPut(ctx, key, contentType, presignExpires)
	if err != nil {
		return PresignedUpload{}, err
	}
	return PresignedUpload{
		UploadURL:        url,
		S3Key:            key,
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	}, nil
}

// CreateFromS3 records a document the browser uploaded through a presigned URL.
func (s *Service) CreateFromS3(ctx context.Context, userId, s3Key, fileName, contentType string, sizeBytes int64) (Document, error) {
	if !strings.HasPrefix(s3Key, userPrefix(userId)+"/") || strings.Contains(s3Key, "..") {
		return Document{}, fmt.Errorf("%w: s3Key does not belong to caller", ErrInvalidInput)
	}
	if contentType != PDFContentType {
		return Document{}, ErrNotPDF
	}
	if sizeBytes <= 0 || sizeBytes > MaxSizeBytes {
		return Document{}, fmt.Errorf("%w: sizeBytes exceeds limit", ErrInvalidInput)
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userId,
		FileName:        fileName,
		MimeType:        contentType,
		SizeBytes:       sizeBytes,
		StorageProvider: "s3",
		StorageKey:      s3Key,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Current returns the current document for a user.
func (s *Service) Current(ctx context.Context, userId string) (Document, error) {
	if userId == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.GetCurrentByUser(ctx, userId)
}

func (s *Service) Get(ctx context.Context, userId, documentID string) (Document, error) {
	if userId == "" || documentID == "" {
		return Document{}, fmt.Errorf("%w: user id and document id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userId, documentID)
}

func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// LoadPDF reads the stored PDF bytes.
func (s *Service) LoadPDF(ctx context.Context, doc Document) ([]byte, error) {
	data, err := object.ReadAll(ctx, s.Store, doc.StorageKey, MaxSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", doc.ID, err)
	}
	return data, nil
}

// SaveParsedText stores OCR output next to the PDF and records its key.
func (s *Service) SaveParsedText(ctx context.Context, doc Document, text string) (string, error) {
	key := doc.StorageKey + parsedSuffix
	if _, err := s.Store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("save parsed text for document %s: %w", doc.ID, err)
	}
	if err := s.Repo.UpdateParsedText(ctx, doc.UserID, doc.ID, key, s.now()); err != nil {
		return "", fmt.Errorf("update document %s: %w", doc.ID, err)
	}
	return key, nil
}

func userPrefix(userId string) string {
	return path.Join(uploadsPrefix, object.UserKey(userId))
}

func (s *Service) provider() string {
	if s.StorageProvider == "" {
		return "local"
	}
	return s.StorageProvider
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
