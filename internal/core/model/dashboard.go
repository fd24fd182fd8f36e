package model

type DashboardSummary struct {
	TotalLeads        int     `json:"totalLeads"`
	AssignedThisWeek  int     `json:"assignedThisWeek"`
	ConvertedLeads    int     `json:"convertedLeads"`
	UnassignedLeads   int     `json:"unassignedLeads"`
	ActiveEmployees   int     `json:"activeEmployees"`
	TotalEmployees    int     `json:"totalEmployees"`
	ConversionRatePct float64 `json:"conversionRate"`
}

type EmployeePerformance struct {
	EmployeeID        string  `json:"employeeId"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	AssignedLeads     int     `json:"assignedLeads"`
	ClosedLeads       int     `json:"closedLeads"`
	PendingLeads      int     `json:"pendingLeads"`
	ConversionRatePct float64 `json:"conversionRate"`
}

// DailyCount is the number of leads closed on one UTC day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
