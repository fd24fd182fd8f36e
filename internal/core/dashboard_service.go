package core

import (
	"context"
	"math"
	"sort"

	"crm.service/internal/core/model"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/apperror"
)

type DashboardService struct {
	repo  repository.DashboardRepository
	clock Clock
}

func NewDashboardService(repo repository.DashboardRepository, clock Clock) *DashboardService {
	return &DashboardService{repo: repo, clock: clock}
}

// Summary counts leads and employees. "This week" is the trailing seven days.
func (s *DashboardService) Summary(ctx context.Context) (model.DashboardSummary, error) {
	since := DayOf(s.clock.Now()).AddDate(0, 0, -7)
	sum, err := s.repo.Summary(ctx, since)
	if err != nil {
		return model.DashboardSummary{}, err
	}
	sum.ConversionRatePct = rate(sum.ConvertedLeads, sum.TotalLeads)
	return sum, nil
}

// EmployeePerformance reports per-employee lead counts, busiest first.
func (s *DashboardService) EmployeePerformance(ctx context.Context) ([]model.EmployeePerformance, error) {
	perf, err := s.repo.EmployeePerformance(ctx)
	if err != nil {
		return nil, err
	}
	for i := range perf {
		perf[i].PendingLeads = perf[i].AssignedLeads - perf[i].ClosedLeads
		perf[i].ConversionRatePct = rate(perf[i].ClosedLeads, perf[i].AssignedLeads)
	}
	sort.SliceStable(perf, func(i, j int) bool {
		if perf[i].AssignedLeads != perf[j].AssignedLeads {
			return perf[i].AssignedLeads > perf[j].AssignedLeads
		}
		return perf[i].EmployeeID < perf[j].EmployeeID
	})
	return perf, nil
}

// rate is part/total as a percentage rounded to two decimals.
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// MaxDailyClosedDays bounds the window of DailyClosedLeads.
const MaxDailyClosedDays = 366

// DailyClosedLeads returns one entry per day for the last `days` days up to
// and including today, zero-filled.
func (s *DashboardService) DailyClosedLeads(ctx context.Context, days int) ([]model.DailyCount, error) {
	if days <= 0 {
		days = 14
	}
	if days > MaxDailyClosedDays {
		return nil, apperror.Validation("days", "days must be at most %d", MaxDailyClosedDays)
	}
	to := DayOf(s.clock.Now()).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	counts, err := s.repo.ClosedPerDay(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]model.DailyCount, 0, days)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.ScheduleDateLayout)
		out = append(out, model.DailyCount{Date: key, Count: counts[key]})
	}
	return out, nil
}
