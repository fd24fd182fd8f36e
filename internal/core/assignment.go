package core

import (
	"context"
	"strconv"
	"time"

	"crm.service/internal/core/model"
	"crm.service/internal/metrics"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/apperror"
	"github.com/rs/zerolog/log"
)

// Matching tiers, best first.
const (
	TierNone    = 0
	TierExact   = 1 // language and location match
	TierPartial = 2 // language or location matches
	TierAll     = 3 // anyone in the directory
)

// AssignmentEngine picks the owner of a new lead: the least loaded employee
// of the best non-empty matching tier.
type AssignmentEngine struct {
	employees repository.EmployeeRepository
	leads     repository.LeadRepository
}

func NewAssignmentEngine(employees repository.EmployeeRepository, leads repository.LeadRepository) *AssignmentEngine {
	return &AssignmentEngine{employees: employees, leads: leads}
}

// MatchTier returns the best non-empty tier for lang/loc and its candidates.
func MatchTier(employees []model.Employee, lang model.Language, loc model.Location) (int, []model.Employee) {
	var exact, partial []model.Employee
	for _, e := range employees {
		langOK, locOK := e.Language == lang, e.Location == loc
		switch {
		case langOK && locOK:
			exact = append(exact, e)
		case langOK || locOK:
			partial = append(partial, e)
		}
	}

	switch {
	case len(exact) > 0:
		return TierExact, exact
	case len(partial) > 0:
		return TierPartial, partial
	case len(employees) > 0:
		return TierAll, employees
	default:
		return TierNone, nil
	}
}

// LeastLoaded returns the candidate with the fewest pending leads. Ties go to
// the lowest employee id so the choice is stable for a given snapshot.
func LeastLoaded(candidates []model.Employee, pending map[string]int) (string, bool) {
	best := ""
	bestCount := 0
	for _, c := range candidates {
		n := pending[c.ID]
		if best == "" || n < bestCount || (n == bestCount && c.ID < best) {
			best, bestCount = c.ID, n
		}
	}
	return best, best != ""
}

// Select chooses an owner without writing anything. It returns an empty id
// and TierNone when the directory is empty.
func (e *AssignmentEngine) Select(ctx context.Context, lang model.Language, loc model.Location) (string, int, error) {
	employees, err := e.employees.List(ctx)
	if err != nil {
		return "", TierNone, err
	}

	tier, candidates := MatchTier(employees, lang, loc)
	if tier == TierNone {
		return "", TierNone, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	pending, err := e.leads.PendingCounts(ctx, ids)
	if err != nil {
		return "", TierNone, err
	}

	id, _ := LeastLoaded(candidates, pending)
	return id, tier, nil
}

// Assign selects an owner for lead and persists it, conditional on the lead
// still being unassigned. An empty directory leaves the lead unassigned and
// is not an error.
func (e *AssignmentEngine) Assign(ctx context.Context, lead *model.Lead) (string, error) {
	start := time.Now()
	defer func() { metrics.AssignmentDuration.Observe(time.Since(start).Seconds()) }()

	if lead.AssignedTo != nil {
		return *lead.AssignedTo, nil
	}

	employeeID, tier, err := e.Select(ctx, lead.Language, lead.Location)
	if err != nil {
		return "", err
	}
	if employeeID == "" {
		metrics.LeadsUnassigned.WithLabelValues("no_eligible_worker").Inc()
		log.Ctx(ctx).Warn().
			Str("lead_id", lead.ID).
			Err(apperror.NoEligibleWorker("no employees available at any tier")).
			Msg("Lead left unassigned")
		return "", nil
	}

	ok, err := e.leads.AssignIfUnassigned(ctx, lead.ID, employeeID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperror.StateConflict("lead %s was assigned concurrently", lead.ID)
	}

	lead.AssignedTo = &employeeID
	lead.Version++
	metrics.LeadsAssigned.WithLabelValues(strconv.Itoa(tier)).Inc()
	log.Ctx(ctx).Info().Str("lead_id", lead.ID).Str("employee_id", employeeID).Int("tier", tier).Msg("Lead assigned")
	return employeeID, nil
}
