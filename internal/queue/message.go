// Package queue carries parse jobs from the API to the workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageVersion is the current payload version. Version 0 is accepted as
// the unversioned first revision.
const MessageVersion = 1

var (
	ErrInvalidMessage     = errors.New("invalid queue message")
	ErrUnsupportedVersion = errors.New("unsupported queue message version")
)

// Client hands a parse job to whatever runs the workers.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Message asks a worker to run extraction and enrichment for one parse.
type Message struct {
	ParseID    string `json:"parseId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewParseMessage stamps a job for parseID at the current version.
func NewParseMessage(parseID, requestID string, at time.Time) Message {
	return Message{
		ParseID:    parseID,
		RequestID:  requestID,
		EnqueuedAt: at.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EnqueuedTime parses EnqueuedAt; the zero time means it was unset or bad.
func (m Message) EnqueuedTime() time.Time {
	t, err := time.Parse(time.RFC3339, m.EnqueuedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a payload and rejects versions this build cannot read.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.Version < 0 || msg.Version > MessageVersion {
		return msg, fmt.Errorf("%w: %d", ErrUnsupportedVersion, msg.Version)
	}
	return msg, nil
}
