// Package hrapi posts closed attendance days to the external HR timesheet system.
package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crm.service/internal/ports/messaging"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is the contract of the HR timesheet system.
type Client interface {
	RecordTimesheet(ctx context.Context, event messaging.DayClosedEvent) error
}

// StatusError is a non-2xx answer from the HR API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hr api returned non-successful status code: %d", e.StatusCode)
}

// Retryable reports whether the request may succeed later. Client errors
// other than throttling will not.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
	}
}

// RecordTimesheet posts one closed day. The attendance id doubles as the
// idempotency key so a redelivered message is not booked twice.
func (c *HTTPClient) RecordTimesheet(ctx context.Context, event messaging.DayClosedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal hr api payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create hr api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.AttendanceID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call hr api: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	log.Ctx(ctx).Info().
		Str("employee_id", event.EmployeeID).
		Str("day", event.Day).
		Msg("Timesheet recorded in HR system")
	return nil
}
