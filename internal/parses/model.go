package parses

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Parse is one asynchronous run of the resume pipeline over a stored document.
type Parse struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	DocumentID   string         `json:"documentId"`
	Status       string         `json:"status"`
	ParsedText   string         `json:"parsedText,omitempty"`
	Extracted    map[string]any `json:"extractedJson,omitempty"`
	Enhanced     map[string]any `json:"enhancedJson,omitempty"`
	Degraded     bool           `json:"degraded"`
	ParsingError string         `json:"parsingError,omitempty"`
	ErrorCode    string         `json:"errorCode,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Retryable    bool           `json:"retryable"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Terminal reports whether the parse has stopped changing.
func (p Parse) Terminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}
