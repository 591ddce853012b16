package queue

import (
	"errors"
	"testing"
	"time"
)

func TestMessageWireFormat(t *testing.T) {
	at := time.Date(2026, time.January, 30, 17, 0, 0, 0, time.FixedZone("EST", -5*3600))
	payload, err := EncodeMessage(NewParseMessage("parse-123", "request-456", at))
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	want := `{"parseId":"parse-123","requestId":"request-456","enqueuedAt":"2026-01-30T22:00:00Z","version":1}`
	if string(payload) != want {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  string
		wantErr error
	}{
		{name: "valid", body: `{"parseId":"p-1","requestId":"r-1","version":1}`, wantID: "p-1"},
		{name: "unversioned", body: `{"parseId":"p-2","extra":true}`, wantID: "p-2"},
		{name: "not json", body: `parse p-3`, wantErr: ErrInvalidMessage},
		{name: "future version", body: `{"parseId":"p-4","version":7}`, wantErr: ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.ParseID != tt.wantID {
				t.Fatalf("expected %s, got %s", tt.wantID, msg.ParseID)
			}
		})
	}
}

func TestEnqueuedTime(t *testing.T) {
	msg := Message{EnqueuedAt: "2026-01-30T22:00:00Z"}
	if got := msg.EnqueuedTime(); got.Hour() != 22 {
		t.Fatalf("unexpected time %v", got)
	}
	if !(Message{EnqueuedAt: "yesterday"}).EnqueuedTime().IsZero() {
		t.Fatalf("expected zero time for bad timestamp")
	}
}
