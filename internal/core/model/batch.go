package model

// ImportRow is one lead candidate handed over by a batch import.
type ImportRow struct {
	Line         int
	Name         string
	Email        string
	Phone        string
	Language     string
	Location     string
	LeadType     string
	ReceivedDate string
	AssignedTo   string
}

type ImportReport struct {
	Total      int      `json:"total"`
	Valid      int      `json:"valid"`
	Inserted   int      `json:"inserted"`
	Unassigned int      `json:"unassigned"`
	Errors     []string `json:"errors"`
	Discarded  []string `json:"discarded"`
}

// RemovalReport summarises what happened to an employee's leads on removal.
type RemovalReport struct {
	Moved      int `json:"moved"`
	Unassigned int `json:"unassigned"`
	Released   int `json:"released"`
	// SchedulesCleared counts moved leads whose slot the new owner already held.
	SchedulesCleared int `json:"schedulesCleared"`
}
