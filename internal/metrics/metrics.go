// Package metrics holds the Prometheus collectors for lead distribution and
// attendance. They live on a private registry served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the CRM services.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// LeadsAssigned counts automatic assignments by winning tier ("1", "2", "3")
// and direct assignments under tier "direct".
var LeadsAssigned = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Name:      "leads_assigned_total",
	Help:      "Leads assigned to an employee, by matching tier",
}, []string{"tier"})

// LeadsUnassigned counts leads left without owner because nobody was eligible.
var LeadsUnassigned = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Name:      "leads_unassigned_total",
	Help:      "Leads left unassigned because no employee was eligible",
}, []string{"reason"})

var LeadsRedistributed = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "crm",
	Name:      "leads_redistributed_total",
	Help:      "Pending leads moved away from a departing employee",
})

var AssignmentDuration = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "crm",
	Name:      "assignment_duration_seconds",
	Help:      "Time spent selecting and persisting an owner for a lead",
	Buckets:   prometheus.DefBuckets,
})

var ScheduleConflicts = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "crm",
	Name:      "schedule_conflicts_total",
	Help:      "Schedule updates rejected because the slot was taken",
})

var AttendanceTransitions = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Name:      "attendance_transitions_total",
	Help:      "Accepted attendance transitions, by event",
}, []string{"event"})

var AttendanceConflicts = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Name:      "attendance_conflicts_total",
	Help:      "Attendance transitions rejected as state conflicts, by event",
}, []string{"event"})

var MessagesProcessed = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Name:      "worker_messages_total",
	Help:      "Queue messages handled by the workers, by queue and outcome",
}, []string{"queue", "outcome"})
