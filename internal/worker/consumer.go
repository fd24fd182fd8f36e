package worker

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"crm.service/internal/metrics"
	"crm.service/pkg/logger"
	"crm.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor handles one message. shouldRetry with a non-nil error puts the
// message back after retryDelay seconds; any other error drops it.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (shouldRetry bool, retryDelay int32, err error)
}

// Worker polls a queue and fans messages out to a fixed pool of processors.
type Worker struct {
	client    SQSClient
	queueURL  string
	queueName string
	processor Processor
	// Concurrency controls how many messages can be processed at the same time.
	Concurrency int
	// PollErrorDelay is the pause after a failed ReceiveMessage.
	PollErrorDelay time.Duration
}

// NewWorker creates a worker for queueURL. queueName labels its metrics.
func NewWorker(client SQSClient, queueURL, queueName string, proc Processor) *Worker {
	return &Worker{
		client:         client,
		queueURL:       queueURL,
		queueName:      queueName,
		processor:      proc,
		Concurrency:    10,
		PollErrorDelay: 5 * time.Second,
	}
}

// Start polls until ctx is canceled, then waits for in-flight messages.
func (w *Worker) Start(ctx context.Context) {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	log.Info().Str("queue", w.queueName).Int("concurrency", w.Concurrency).Msg("SQS Worker started. Polling for messages...")

	messagesCh := make(chan types.Message, w.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processMessages(ctx, messagesCh)
		}()
	}

	w.pollMessages(ctx, messagesCh)
	wg.Wait()
	log.Info().Str("queue", w.queueName).Msg("SQS Worker stopped")
}

func (w *Worker) pollMessages(ctx context.Context, messagesCh chan<- types.Message) {
	defer close(messagesCh)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Poller shutting down...")
			return
		default:
		}

		output, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:                    &w.queueURL,
			MaxNumberOfMessages:         int32(min(w.Concurrency, 10)),
			WaitTimeSeconds:             20,
			MessageAttributeNames:       []string{"All"},
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Str("queue", w.queueName).Msg("Error receiving messages")
			select {
			case <-ctx.Done():
			case <-time.After(w.PollErrorDelay):
			}
			continue
		}

		if len(output.Messages) > 0 {
			log.Debug().Int("count", len(output.Messages)).Str("queue", w.queueName).Msg("Received messages")
		}
		for _, msg := range output.Messages {
			messagesCh <- msg
		}
	}
}

func (w *Worker) processMessages(ctx context.Context, messagesCh <-chan types.Message) {
	for msg := range messagesCh {
		w.handleSingleMessage(ctx, msg)
	}
}

// handleSingleMessage runs the processor and then deletes the message or
// hides it for the retry delay.
func (w *Worker) handleSingleMessage(ctx context.Context, msg types.Message) {
	// In-flight work finishes even when shutdown has begun.
	ctx = context.WithoutCancel(ctx)

	ctx, span := telemetry.StartSpanFromSQSMessage(ctx, msg)
	defer span.End()

	ctx = logger.EnrichContextWithLogger(ctx)

	shouldRetry, retryDelay, err := w.processor.Process(ctx, msg)

	if err != nil && shouldRetry {
		metrics.MessagesProcessed.WithLabelValues(w.queueName, "retry").Inc()
		log.Ctx(ctx).Warn().Err(err).Int32("retry_delay", retryDelay).Msg("Processing failed, will retry")

		_, _ = w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          &w.queueURL,
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: retryDelay,
		})
		return
	}

	if err != nil {
		metrics.MessagesProcessed.WithLabelValues(w.queueName, "dropped").Inc()
		log.Ctx(ctx).Error().Err(err).Msg("Unrecoverable error processing message, will not retry")
	} else {
		metrics.MessagesProcessed.WithLabelValues(w.queueName, "done").Inc()
	}

	// Dropped messages are deleted too so they do not come back after the
	// visibility timeout.
	if _, derr := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &w.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}); derr != nil {
		log.Ctx(ctx).Error().Err(derr).Msg("Failed to delete message")
	}
}

// Backoff is the visibility delay in seconds before retry number retryCount:
// 10s doubled per attempt, capped at one hour.
func Backoff(retryCount int) int32 {
	backoff := math.Pow(2, float64(retryCount)) * 10
	if backoff > 3600 {
		return 3600
	}
	return int32(backoff)
}

// ReceiveCount is how many times SQS has delivered msg, 1 on first delivery.
func ReceiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
