package repository

import (
	"context"
	"time"

	"crm.service/internal/core/model"
	"crm.service/pkg/database"
)

// PostgresDashboardRepository answers the aggregate queries of the admin dashboard.
type PostgresDashboardRepository struct {
	pool database.Queryer
}

var _ DashboardRepository = (*PostgresDashboardRepository)(nil)

func NewDashboardRepository(pool database.Queryer) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{pool: pool}
}

func (r *PostgresDashboardRepository) Summary(ctx context.Context, assignedSince time.Time) (model.DashboardSummary, error) {
	var s model.DashboardSummary
	exec := database.QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
        SELECT (SELECT COUNT(*) FROM leads),
               (SELECT COUNT(*) FROM leads WHERE assigned_to IS NOT NULL AND created_at >= $1),
               (SELECT COUNT(*) FROM leads WHERE status = 'Closed'),
               (SELECT COUNT(*) FROM leads WHERE assigned_to IS NULL),
               (SELECT COUNT(*) FROM employees WHERE is_active),
               (SELECT COUNT(*) FROM employees)`, assignedSince).Scan(
		&s.TotalLeads, &s.AssignedThisWeek, &s.ConvertedLeads, &s.UnassignedLeads, &s.ActiveEmployees, &s.TotalEmployees,
	)
	if err != nil {
		return model.DashboardSummary{}, translatePgError(err, "")
	}
	return s, nil
}

func (r *PostgresDashboardRepository) EmployeePerformance(ctx context.Context) ([]model.EmployeePerformance, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT e.id,
               e.first_name || ' ' || e.last_name,
               e.email,
               COUNT(l.id),
               COUNT(l.id) FILTER (WHERE l.status = 'Closed')
          FROM employees e
          LEFT JOIN leads l ON l.assigned_to = e.id
         GROUP BY e.id
         ORDER BY e.id`)
	if err != nil {
		return nil, translatePgError(err, "")
	}
	defer rows.Close()

	perf := []model.EmployeePerformance{}
	for rows.Next() {
		var p model.EmployeePerformance
		if err := rows.Scan(&p.EmployeeID, &p.Name, &p.Email, &p.AssignedLeads, &p.ClosedLeads); err != nil {
			return nil, translatePgError(err, "")
		}
		perf = append(perf, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "")
	}
	return perf, nil
}

func (r *PostgresDashboardRepository) ClosedPerDay(ctx context.Context, from, to time.Time) (map[string]int, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT to_char(closed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'), COUNT(*)
          FROM leads
         WHERE status = 'Closed' AND closed_at >= $1 AND closed_at < $2
         GROUP BY 1`, from, to)
	if err != nil {
		return nil, translatePgError(err, "")
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			day string
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, translatePgError(err, "")
		}
		counts[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "")
	}
	return counts, nil
}
