package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	sender               MessageSender
	notificationQueueURL string
	timesheetQueueURL    string
}

func NewProducer(sender MessageSender, notificationQueueURL, timesheetQueueURL string) *Producer {
	return &Producer{
		sender:               sender,
		notificationQueueURL: notificationQueueURL,
		timesheetQueueURL:    timesheetQueueURL,
	}
}

func NewSQSProducer(client SQSClient, notificationQueueURL, timesheetQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, notificationQueueURL, timesheetQueueURL)
}

func (p *Producer) PublishNotification(ctx context.Context, event NotificationEvent) error {
	if event.LeadID != "" {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.leadId", event.LeadID))
	}
	return p.publish(ctx, p.notificationQueueURL, event.EmployeeID, event)
}

func (p *Producer) PublishTimesheet(ctx context.Context, event DayClosedEvent) error {
	return p.publish(ctx, p.timesheetQueueURL, event.EmployeeID, event)
}

func (p *Producer) publish(ctx context.Context, destination, employeeID string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() && employeeID != "" {
		span.SetAttributes(attribute.String("app.employeeId", employeeID))
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
