// Package workerproc decodes parse-job messages and hands them to a
// processor. The SQS poller and the Lambda handler share it.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio-backend/internal/parses"
	"portfolio-backend/internal/queue"
	"portfolio-backend/internal/shared/telemetry"
)

// Processor runs one parse job.
type Processor interface {
	ProcessParse(ctx context.Context, parseID string) error
}

// Job is a decoded delivery.
type Job struct {
	queue.Message
	BodyLen    int
	BodySHA256 string
}

// Reason classifies a message that could not become a Job.
type Reason string

const (
	ReasonEmptyBody      Reason = "empty_body"
	ReasonDecode         Reason = "decode_failed"
	ReasonMissingParseID Reason = "missing_id"
)

// MessageError is returned by Decode. Such messages never succeed on
// redelivery.
type MessageError struct {
	Reason     Reason
	RequestID  string
	BodyLen    int
	BodySHA256 string
	Err        error
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad message (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bad message (%s)", e.Reason)
}

func (e *MessageError) Unwrap() error { return e.Err }

// LogFields describes the payload without logging it.
func (e *MessageError) LogFields() map[string]any {
	fields := map[string]any{"reason": string(e.Reason), "body_len": e.BodyLen}
	if e.BodySHA256 != "" {
		fields["body_sha256"] = e.BodySHA256
	}
	if e.RequestID != "" {
		fields["request_id"] = e.RequestID
	}
	return fields
}

// ProcessError wraps a processor failure for a decoded job.
type ProcessError struct {
	ParseID   string
	RequestID string
	Err       error
}

func (e *ProcessError) Error() string { return "process parse " + e.ParseID + ": " + e.Err.Error() }

func (e *ProcessError) Unwrap() error { return e.Err }

// Retryable reports whether redelivering the message could succeed.
func (e *ProcessError) Retryable() bool { return parses.IsRetryable(e.Err) }

// Unrecoverable reports whether an error from this package means the message
// should be dropped rather than redelivered.
func Unrecoverable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProcessError
	if errors.As(err, &pe) {
		return !pe.Retryable()
	}
	return true
}

// Decode validates a queue payload.
func Decode(body string) (Job, error) {
	job := Job{BodyLen: len(body)}
	if body != "" {
		sum := sha256.Sum256([]byte(body))
		job.BodySHA256 = hex.EncodeToString(sum[:])
	}
	fail := func(r Reason, requestID string, err error) (Job, error) {
		return job, &MessageError{Reason: r, RequestID: requestID, BodyLen: job.BodyLen, BodySHA256: job.BodySHA256, Err: err}
	}

	if strings.TrimSpace(body) == "" {
		return fail(ReasonEmptyBody, "", nil)
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return fail(ReasonDecode, "", err)
	}
	job.Message = msg
	if strings.TrimSpace(msg.ParseID) == "" {
		return fail(ReasonMissingParseID, msg.RequestID, nil)
	}
	return job, nil
}

// Run hands a decoded job to the processor with its request id attached.
func Run(ctx context.Context, processor Processor, job Job) error {
	if processor == nil {
		return errors.New("parse processor not configured")
	}
	if at := job.EnqueuedTime(); !at.IsZero() {
		telemetry.Info("worker.message_received", map[string]any{
			"parse_id":   job.ParseID,
			"request_id": job.RequestID,
			"queue_ms":   time.Since(at).Milliseconds(),
		})
	}
	if err := processor.ProcessParse(parses.WithRequestID(ctx, job.RequestID), job.ParseID); err != nil {
		return &ProcessError{ParseID: job.ParseID, RequestID: job.RequestID, Err: err}
	}
	return nil
}

// HandleMessage decodes body and runs it.
func HandleMessage(ctx context.Context, processor Processor, body string) error {
	job, err := Decode(body)
	if err != nil {
		return err
	}
	return Run(ctx, processor, job)
}
