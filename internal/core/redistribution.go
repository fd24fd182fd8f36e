package core

import (
	"context"
	"sort"

	"crm.service/internal/core/model"
	"crm.service/internal/metrics"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/apperror"
	"github.com/rs/zerolog/log"
)

// WorkloadSet is the in-memory pending counter used while redistributing.
// Counts are read once and then incremented locally as leads are handed out.
type WorkloadSet struct {
	entries []model.Workload
}

func NewWorkloadSet(employeeIDs []string, pending map[string]int) *WorkloadSet {
	ws := &WorkloadSet{entries: make([]model.Workload, 0, len(employeeIDs))}
	for _, id := range employeeIDs {
		ws.entries = append(ws.entries, model.Workload{EmployeeID: id, Pending: pending[id]})
	}
	return ws
}

func (w *WorkloadSet) Len() int { return len(w.entries) }

// Next returns the least loaded employee (lowest id on ties) and counts one
// more lead against them.
func (w *WorkloadSet) Next() (string, bool) {
	if len(w.entries) == 0 {
		return "", false
	}
	sort.Slice(w.entries, func(i, j int) bool {
		if w.entries[i].Pending != w.entries[j].Pending {
			return w.entries[i].Pending < w.entries[j].Pending
		}
		return w.entries[i].EmployeeID < w.entries[j].EmployeeID
	})
	w.entries[0].Pending++
	return w.entries[0].EmployeeID, true
}

// Release undoes one Next for employeeID, used when the write did not land.
func (w *WorkloadSet) Release(employeeID string) {
	for i := range w.entries {
		if w.entries[i].EmployeeID == employeeID && w.entries[i].Pending > 0 {
			w.entries[i].Pending--
			return
		}
	}
}

// Snapshot returns the current counts ordered by employee id.
func (w *WorkloadSet) Snapshot() []model.Workload {
	out := make([]model.Workload, len(w.entries))
	copy(out, w.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

// LeadMove records one reassigned lead.
type LeadMove struct {
	LeadID   string
	LeadName string
	To       string
	// ScheduleCleared is set when the new owner already held the lead's slot.
	ScheduleCleared bool
}

type RedistributionResult struct {
	Moves            []LeadMove
	Unassigned       int
	SchedulesCleared int
}

// RedistributionEngine hands a departing employee's pending leads to the
// rest of the workforce.
type RedistributionEngine struct {
	employees repository.EmployeeRepository
	leads     repository.LeadRepository
	clock     Clock
}

func NewRedistributionEngine(employees repository.EmployeeRepository, leads repository.LeadRepository, clock Clock) *RedistributionEngine {
	return &RedistributionEngine{employees: employees, leads: leads, clock: clock}
}

// Redistribute moves every pending lead of departingID. It must run inside
// the transaction that deletes the employee.
func (r *RedistributionEngine) Redistribute(ctx context.Context, departingID string) (RedistributionResult, error) {
	var res RedistributionResult

	pending, err := r.leads.PendingByAssignee(ctx, departingID)
	if err != nil {
		return res, err
	}
	if len(pending) == 0 {
		return res, nil
	}

	employees, err := r.employees.List(ctx)
	if err != nil {
		return res, err
	}
	remaining := make([]string, 0, len(employees))
	for _, e := range employees {
		if e.ID != departingID {
			remaining = append(remaining, e.ID)
		}
	}

	if len(remaining) == 0 {
		n, err := r.leads.UnassignPending(ctx, departingID)
		if err != nil {
			return res, err
		}
		res.Unassigned = n
		metrics.LeadsUnassigned.WithLabelValues("no_remaining_employee").Add(float64(n))
		log.Ctx(ctx).Warn().
			Str("employee_id", departingID).
			Int("leads", n).
			Err(apperror.NoEligibleWorker("no employees remain")).
			Msg("Pending leads unassigned")
		return res, nil
	}

	counts, err := r.leads.PendingCounts(ctx, remaining)
	if err != nil {
		return res, err
	}
	ws := NewWorkloadSet(remaining, counts)

	for _, lead := range pending {
		to, _ := ws.Next()

		cleared, err := r.freeSlot(ctx, &lead, to)
		if apperror.IsKind(err, apperror.KindStateConflict) {
			ws.Release(to)
			continue
		}
		if err != nil {
			return res, err
		}

		ok, err := r.leads.Reassign(ctx, lead.ID, departingID, to)
		if err != nil {
			return res, err
		}
		if !ok {
			// Closed or moved since it was read.
			ws.Release(to)
			continue
		}
		if cleared {
			res.SchedulesCleared++
		}
		res.Moves = append(res.Moves, LeadMove{LeadID: lead.ID, LeadName: lead.Name, To: to, ScheduleCleared: cleared})
	}

	metrics.LeadsRedistributed.Add(float64(len(res.Moves)))
	log.Ctx(ctx).Info().
		Str("employee_id", departingID).
		Int("moved", len(res.Moves)).
		Int("schedules_cleared", res.SchedulesCleared).
		Interface("workload", ws.Snapshot()).
		Msg("Pending leads redistributed")
	return res, nil
}

// freeSlot drops the schedule of lead when the new owner already has a
// pending lead at the same date and time, so the move never double-books.
func (r *RedistributionEngine) freeSlot(ctx context.Context, lead *model.Lead, to string) (bool, error) {
	if lead.Schedule == nil {
		return false, nil
	}
	taken, err := r.leads.ScheduleTaken(ctx, to, lead.ID, *lead.Schedule)
	if err != nil || !taken {
		return false, err
	}

	expected := lead.Version
	lead.Schedule = nil
	lead.UpdatedAt = r.clock.Now()
	if err := r.leads.Update(ctx, lead, expected); err != nil {
		return false, err
	}
	log.Ctx(ctx).Warn().
		Str("lead_id", lead.ID).
		Str("employee_id", to).
		Msg("Schedule cleared on redistribution, slot already taken")
	return true, nil
}
