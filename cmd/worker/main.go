package main

import (
	"context"
	"errors"
	"log"
	"maps"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/semaphore"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/workerproc"
)

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.Queue.URL)
	if queueURL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Queue.Region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	p := &poller{
		client:      sqs.NewFromConfig(awsCfg),
		queueURL:    queueURL,
		processor:   app.Parses,
		concurrency: int64(max(1, cfg.Queue.Concurrency)),
		visibility:  int32(cfg.Queue.VisibilitySeconds),
	}
	telemetry.Info("worker.started", map[string]any{
		"queue_url":          queueURL,
		"concurrency":        p.concurrency,
		"visibility_seconds": p.visibility,
	})
	p.run(ctx)

	telemetry.Info("worker.draining", map[string]any{"timeout": cfg.Queue.ShutdownTimeout.String()})
	if !p.drain(cfg.Queue.ShutdownTimeout) {
		telemetry.Warn("worker.drain_timeout", nil)
	}
}

const (
	receiveBackoffMin = time.Second
	receiveBackoffMax = 30 * time.Second
)

// poller long-polls one queue and runs up to concurrency jobs at a time.
type poller struct {
	client      sqsAPI
	queueURL    string
	processor   workerproc.Processor
	concurrency int64
	visibility  int32

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// run polls until ctx is cancelled. Receive errors back off exponentially
// so a broken queue or expired credentials do not spin.
func (p *poller) run(ctx context.Context) {
	p.sem = semaphore.NewWeighted(p.concurrency)
	backoff := receiveBackoffMin
	for ctx.Err() == nil {
		resp, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   p.visibility,
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error(), "backoff": backoff.String()})
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, receiveBackoffMax)
			continue
		}
		backoff = receiveBackoffMin

		for _, msg := range resp.Messages {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				// Unstarted messages become visible again after the timeout.
				return
			}
			metrics.IncParseJobsReceived()
			p.wg.Add(1)
			go func(m sqstypes.Message) {
				defer p.wg.Done()
				defer p.sem.Release(1)
				// In-flight jobs finish even after SIGTERM.
				handleMessage(context.WithoutCancel(ctx), p.client, p.queueURL, p.processor, m)
			}(msg)
		}
	}
}

// drain waits for in-flight jobs and reports whether they all finished
// within timeout.
func (p *poller) drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// handleMessage processes one delivery. Successful and unrecoverable messages
// are deleted; retryable failures are left to reappear after the visibility
// timeout.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, processor workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	job, err := workerproc.Decode(body)
	if err != nil {
		fields := baseFields(msg, "", "")
		var bad *workerproc.MessageError
		if errors.As(err, &bad) {
			maps.Copy(fields, bad.LogFields())
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.parse.rejected", fields)
		if deleteMessage(ctx, client, queueURL, msg, "", "") {
			metrics.IncParseJobsDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.parse.received", baseFields(msg, job.ParseID, job.RequestID))

	if err := workerproc.Run(ctx, processor, job); err != nil {
		retry := !workerproc.Unrecoverable(err)
		fields := baseFields(msg, job.ParseID, job.RequestID)
		fields["error"] = err.Error()
		fields["retry"] = retry
		telemetry.Error("worker.parse.failed", fields)
		metrics.IncParseJobsFailed()
		if !retry && deleteMessage(ctx, client, queueURL, msg, job.ParseID, job.RequestID) {
			metrics.IncParseJobsDeletedUnrecoverable()
		}
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, job.ParseID, job.RequestID) {
		telemetry.Info("worker.parse.completed", baseFields(msg, job.ParseID, job.RequestID))
		metrics.IncParseJobsCompleted()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, parseID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, parseID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.parse.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, parseID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.parse.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, parseID, requestID string) map[string]any {
	fields := map[string]any{
		"parse_id":       parseID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
