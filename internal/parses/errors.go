package parses

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEnqueue      = errors.New("enqueue failed")

	errStorage = errors.New("storage")
)

const (
	ErrorCodeOCRFailed        = "OCR_FAILED"
	ErrorCodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	ErrorCodeTimeout          = "TIMEOUT"
	ErrorCodeProvider         = "PROVIDER_ERROR"
	ErrorCodeStorage          = "STORAGE_ERROR"
	ErrorCodeQueue            = "QUEUE_ERROR"
	ErrorCodeInternal         = "INTERNAL_ERROR"
)
