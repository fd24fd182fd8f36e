package main

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"sync"

	"crm.service/internal/ports/messaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// failureRate is the share of requests answered with 503 so the timesheet
// worker's retry path gets exercised locally.
var failureRate = 0.2

type server struct {
	mu   sync.Mutex
	seen map[string]messaging.DayClosedEvent
}

func (s *server) timesheetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event messaging.DayClosedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.EmployeeID == "" {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if rand.Float64() < failureRate {
		log.Warn().Str("employee_id", event.EmployeeID).Msg("Simulating HR system outage")
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	s.mu.Lock()
	_, dup := s.seen[key]
	if key != "" && !dup {
		s.seen[key] = event
	}
	s.mu.Unlock()

	if dup {
		log.Info().Str("idempotency_key", key).Msg("Duplicate timesheet ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Info().
		Str("employee_id", event.EmployeeID).
		Str("day", event.Day).
		Int("worked_minutes", event.WorkedMinutes).
		Int("break_minutes", event.BreakMinutes).
		Msg("Received timesheet")
	w.WriteHeader(http.StatusCreated)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if v := os.Getenv("HR_MOCK_FAILURE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			failureRate = rate
		}
	}

	s := &server{seen: make(map[string]messaging.DayClosedEvent)}
	http.HandleFunc("/", s.timesheetHandler)

	log.Info().Float64("failure_rate", failureRate).Msg("HR API mock server starting on port 8081...")
	if err := http.ListenAndServe(":8081", nil); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
