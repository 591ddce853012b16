package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"portfolio-backend/internal/pipeline"
	"portfolio-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err   error
	calls []string
}

func (f *fakeProcessor) ProcessParse(ctx context.Context, parseID string) error {
	f.calls = append(f.calls, parseID)
	return f.err
}

func sqsMessage(t *testing.T, id, body string) sqstypes.Message {
	t.Helper()
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func encoded(t *testing.T, parseID string) string {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{ParseID: parseID, RequestID: "req-" + parseID, Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func TestWorkerMessageOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		procErr    error
		wantDelete bool
		wantCalls  int
	}{
		{name: "success deletes", body: encoded(t, "p1"), wantDelete: true, wantCalls: 1},
		{name: "retryable failure kept", body: encoded(t, "p2"), procErr: fmt.Errorf("%w: 503", pipeline.ErrOCR), wantDelete: false, wantCalls: 1},
		{name: "permanent failure deleted", body: encoded(t, "p3"), procErr: errors.New("boom"), wantDelete: true, wantCalls: 1},
		{name: "invalid json deleted", body: "{bad-json", wantDelete: true},
		{name: "empty body deleted", body: "", wantDelete: true},
		{name: "missing id deleted", body: `{"requestId":"r"}`, wantDelete: true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			proc := &fakeProcessor{err: tt.procErr}

			handleMessage(context.Background(), client, "queue", proc, sqsMessage(t, fmt.Sprint(i), tt.body))

			if got := len(client.deleted) == 1; got != tt.wantDelete {
				t.Fatalf("expected delete=%v, got %v", tt.wantDelete, client.deleted)
			}
			if len(proc.calls) != tt.wantCalls {
				t.Fatalf("expected %d processor calls, got %d", tt.wantCalls, len(proc.calls))
			}
		})
	}
}

func TestReceiveCount(t *testing.T) {
	msg := sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}
	if receiveCount(msg) != 3 {
		t.Fatalf("expected 3")
	}
	if receiveCount(sqstypes.Message{}) != 0 {
		t.Fatalf("expected 0 without attributes")
	}
}

type scriptedSQS struct {
	mu       sync.Mutex
	batches  [][]sqstypes.Message
	receives int
	deleted  []string
	cancel   context.CancelFunc
}

func (s *scriptedSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receives++
	if len(s.batches) == 0 {
		s.cancel()
		return nil, context.Canceled
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (s *scriptedSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type countingProcessor struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingProcessor) ProcessParse(ctx context.Context, parseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, parseID)
	return nil
}

func TestPollerProcessesBatchesAndDrains(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &scriptedSQS{
		cancel: cancel,
		batches: [][]sqstypes.Message{
			{sqsMessage(t, "a", encoded(t, "p-a")), sqsMessage(t, "b", encoded(t, "p-b"))},
			{sqsMessage(t, "c", encoded(t, "p-c"))},
		},
	}
	proc := &countingProcessor{}
	p := &poller{client: client, queueURL: "queue", processor: proc, concurrency: 2, visibility: 60}

	p.run(ctx)
	if !p.drain(5 * time.Second) {
		t.Fatalf("drain timed out")
	}

	if len(proc.calls) != 3 {
		t.Fatalf("expected 3 jobs, got %v", proc.calls)
	}
	if len(client.deleted) != 3 {
		t.Fatalf("expected 3 deletes, got %v", client.deleted)
	}
	if client.receives != 3 {
		t.Fatalf("expected polling to stop after cancel, got %d receives", client.receives)
	}
}
