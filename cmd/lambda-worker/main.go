package main

// Build the SQS-triggered parse worker:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/workerproc"
)

// deadlineMargin is the time left on the invocation below which records are
// handed back to SQS instead of being started.
const deadlineMargin = 15 * time.Second

var loadProcessor = sync.OnceValues(func() (workerproc.Processor, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, err
	}
	return app.Parses, nil
})

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	processor, err := loadProcessor()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error(), "records": len(event.Records)})
		return retryAll(event.Records), err
	}
	return processBatch(ctx, processor, event), nil
}

// processBatch returns the records SQS should redeliver: retryable failures
// and anything not started before the invocation ran out of time.
// Unrecoverable messages are acknowledged and dropped.
func processBatch(ctx context.Context, processor workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for i, record := range event.Records {
		if outOfTime(ctx) {
			rest := retryAll(event.Records[i:])
			telemetry.Warn("worker.batch_deferred", map[string]any{"deferred": len(rest.BatchItemFailures)})
			failures = append(failures, rest.BatchItemFailures...)
			break
		}

		err := workerproc.HandleMessage(ctx, processor, record.Body)
		if err == nil {
			continue
		}
		retry := !workerproc.Unrecoverable(err)
		telemetry.Error("worker.parse.failed", map[string]any{
			"sqs_message_id": record.MessageId,
			"receive_count":  record.Attributes["ApproximateReceiveCount"],
			"error":          err.Error(),
			"retry":          retry,
		})
		if retry {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func outOfTime(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	deadline, ok := ctx.Deadline()
	return ok && time.Until(deadline) < deadlineMargin
}

func retryAll(records []events.SQSMessage) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, len(records))
	for i, r := range records {
		failures[i] = events.SQSBatchItemFailure{ItemIdentifier: r.MessageId}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
