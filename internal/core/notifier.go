package core

import (
	"context"
	"fmt"

	"crm.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Notifier sends employee-facing e-mails.
type Notifier interface {
	SendCheckoutSummary(ctx context.Context, to, name string, hours float64) error
	SendLeadAssigned(ctx context.Context, to, name, leadName string) error
}

// SESClient is the subset of the SES client the notifier needs.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESNotifier struct {
	client SESClient
	sender string
}

func NewSESNotifier(client SESClient, sender string) *SESNotifier {
	return &SESNotifier{client: client, sender: sender}
}

func (s *SESNotifier) SendCheckoutSummary(ctx context.Context, to, name string, hours float64) error {
	body := fmt.Sprintf("Hello %s,\n\nYou have checked out for the day. Total hours worked: %.2f hours.", name, hours)
	return s.send(ctx, to, "Work Shift Summary", body)
}

func (s *SESNotifier) SendLeadAssigned(ctx context.Context, to, name, leadName string) error {
	body := fmt.Sprintf("Hello %s,\n\nThe lead '%s' has been assigned to you. Check your lead list for details.", name, leadName)
	return s.send(ctx, to, "New lead assigned", body)
}

func (s *SESNotifier) send(ctx context.Context, to, subject, body string) error {
	tracer := otel.Tracer("ses-notifier")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if empID := telemetry.GetEmployeeIDFromContext(ctx); empID != "" {
		span.SetAttributes(attribute.String("app.employeeId", empID))
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
