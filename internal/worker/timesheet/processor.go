// Package timesheet exports closed attendance days to the HR system.
package timesheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm.service/internal/core/model"
	"crm.service/internal/ports/messaging"
	"crm.service/internal/ports/repository"
	"crm.service/internal/worker"
	"crm.service/internal/worker/hrapi"
	"crm.service/pkg/apperror"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// MaxRetries is the number of failed exports after which a day is marked FAILED.
const MaxRetries = 8

// Processor handles day-closed events. A circuit breaker keeps a struggling
// HR API from being hammered by every queued day.
type Processor struct {
	records repository.AttendanceRepository
	hr      hrapi.Client
	cb      *gobreaker.CircuitBreaker
}

func NewProcessor(records repository.AttendanceRepository, hr hrapi.Client) *Processor {
	settings := gobreaker.Settings{
		Name:        "HR-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip at a failure rate of 50% or more over at least 10 requests.
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			// A rejected payload says nothing about the health of the API.
			var statusErr *hrapi.StatusError
			return err == nil || (errors.As(err, &statusErr) && !statusErr.Retryable())
		},
	}

	return &Processor{
		records: records,
		hr:      hr,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.DayClosedEvent
	if msg.Body == nil {
		return false, 0, errors.New("empty message body")
	}
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal day closed event")
		return false, 0, err
	}

	logger := log.Ctx(ctx).With().Str("attendance_id", event.AttendanceID).Str("employee_id", event.EmployeeID).Logger()

	record, err := p.records.FindByID(ctx, event.AttendanceID)
	if apperror.IsKind(err, apperror.KindNotFound) {
		return false, 0, err
	}
	if err != nil {
		return true, 10, fmt.Errorf("failed to get attendance record: %w", err)
	}

	if record.ExportStatus == model.ExportCompleted {
		logger.Info().Msg("Timesheet already exported. Skipping.")
		return false, 0, nil
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.hr.RecordTimesheet(ctx, event)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn().Msg("Circuit breaker is open; skipping HR API call")
		}

		newCount := record.ExportRetryCount + 1
		var statusErr *hrapi.StatusError
		permanent := errors.As(err, &statusErr) && !statusErr.Retryable()

		if permanent || newCount >= MaxRetries {
			if uerr := p.records.UpdateExportStatus(ctx, record.ID, model.ExportFailed, newCount); uerr != nil {
				logger.Error().Err(uerr).Msg("Failed to mark export as failed")
			}
			logger.Error().Err(err).Int("retry_count", newCount).Msg("Timesheet export failed permanently")
			return false, 0, err
		}

		if uerr := p.records.UpdateExportStatus(ctx, record.ID, model.ExportPending, newCount); uerr != nil {
			logger.Error().Err(uerr).Msg("Failed to record export retry")
		}
		return true, worker.Backoff(newCount), err
	}

	return false, 0, p.records.UpdateExportStatus(ctx, record.ID, model.ExportCompleted, record.ExportRetryCount)
}
