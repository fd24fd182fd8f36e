// Package notification sends employee e-mails for lead assignments and
// check-out summaries.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crm.service/internal/core"
	"crm.service/internal/ports/messaging"
	"crm.service/internal/ports/repository"
	"crm.service/internal/worker"
	"crm.service/pkg/apperror"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// MaxAttempts bounds deliveries of one notification before it is dropped.
const MaxAttempts = 6

type Processor struct {
	notifier  core.Notifier
	employees repository.EmployeeRepository
}

func NewProcessor(notifier core.Notifier, employees repository.EmployeeRepository) *Processor {
	return &Processor{notifier: notifier, employees: employees}
}

func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, errors.New("empty message body")
	}
	var event messaging.NotificationEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal notification event")
		return false, 0, err
	}

	emp, err := p.employees.FindByID(ctx, event.EmployeeID)
	if apperror.IsKind(err, apperror.KindNotFound) {
		// Removed since the event was published; nobody to tell.
		log.Ctx(ctx).Info().Str("employee_id", event.EmployeeID).Msg("Employee no longer exists. Skipping notification.")
		return false, 0, nil
	}
	if err != nil {
		return true, 10, fmt.Errorf("failed to get employee for notification: %w", err)
	}

	switch event.Kind {
	case messaging.NotificationLeadAssigned:
		err = p.notifier.SendLeadAssigned(ctx, emp.Email, emp.FirstName, event.LeadName)
	case messaging.NotificationCheckoutSummary:
		err = p.notifier.SendCheckoutSummary(ctx, emp.Email, emp.FirstName, event.HoursWorked)
	default:
		return false, 0, fmt.Errorf("unknown notification kind %q", event.Kind)
	}
	if err == nil {
		return false, 0, nil
	}

	attempt := worker.ReceiveCount(msg)
	if attempt >= MaxAttempts {
		log.Ctx(ctx).Error().Err(err).Int("attempt", attempt).Msg("Giving up on notification")
		return false, 0, err
	}
	return true, worker.Backoff(attempt), err
}
