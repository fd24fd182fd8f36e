package messaging

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// EventPublisher defines the output port for publishing domain events.
type EventPublisher interface {
	PublishNotification(ctx context.Context, event NotificationEvent) error
	PublishTimesheet(ctx context.Context, event DayClosedEvent) error
}

// MessageSender defines the interface for sending raw messages to a messaging system.
type MessageSender interface {
	SendMessage(ctx context.Context, destination string, body []byte) error
}

// SQSClient defines the interface for the AWS SQS client.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// NoopPublisher drops every event. The CLI uses it where no queue is wired.
type NoopPublisher struct{}

func (NoopPublisher) PublishNotification(context.Context, NotificationEvent) error { return nil }

func (NoopPublisher) PublishTimesheet(context.Context, DayClosedEvent) error { return nil }
