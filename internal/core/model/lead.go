package model

import (
	"fmt"
	"time"
)

type LeadStatus string

const (
	LeadPending LeadStatus = "Pending"
	LeadClosed  LeadStatus = "Closed"
)

type LeadType string

const (
	LeadHot  LeadType = "Hot"
	LeadWarm LeadType = "Warm"
	LeadCold LeadType = "Cold"
)

func (s LeadStatus) Valid() bool { return s == LeadPending || s == LeadClosed }

func (t LeadType) Valid() bool { return t == LeadHot || t == LeadWarm || t == LeadCold }

// ScheduleTimeLayout is the wall-clock format of Schedule.Time.
const ScheduleTimeLayout = "15:04"

// ScheduleDateLayout is the calendar format of Schedule.Date on the wire.
const ScheduleDateLayout = "2006-01-02"

// Schedule is a follow-up slot. Date is a UTC midnight, Time is "HH:MM".
type Schedule struct {
	Date time.Time `json:"scheduledDate"`
	Time string    `json:"scheduledTime"`
}

// ParseSchedule validates a date/time pair and normalises it.
func ParseSchedule(date, clock string) (Schedule, error) {
	d, err := time.Parse(ScheduleDateLayout, date)
	if err != nil {
		return Schedule{}, fmt.Errorf("scheduledDate must be YYYY-MM-DD: %w", err)
	}
	t, err := time.Parse(ScheduleTimeLayout, clock)
	if err != nil {
		return Schedule{}, fmt.Errorf("scheduledTime must be HH:MM: %w", err)
	}
	return Schedule{Date: d.UTC(), Time: t.Format(ScheduleTimeLayout)}, nil
}

// Instant combines Date and Time into a single UTC timestamp.
func (s Schedule) Instant() time.Time {
	t, err := time.Parse(ScheduleTimeLayout, s.Time)
	if err != nil {
		return s.Date
	}
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func (s Schedule) Equal(o Schedule) bool {
	return s.Date.Equal(o.Date) && s.Time == o.Time
}

type Lead struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        *string    `json:"email,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	Language     Language   `json:"language"`
	Location     Location   `json:"location"`
	Type         LeadType   `json:"leadType"`
	Status       LeadStatus `json:"status"`
	AssignedTo   *string    `json:"assignedTo"`
	Schedule     *Schedule  `json:"schedule,omitempty"`
	ReceivedDate time.Time  `json:"receivedDate"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// LeadFilter narrows ListLeads. Zero values mean "any".
type LeadFilter struct {
	Status        LeadStatus
	AssignedTo    string
	Language      Language
	Location      Location
	Type          LeadType
	Search        string
	ScheduledOnly bool
	Limit         int
	Offset        int
}

// LeadPage is one page of ListLeads together with the unpaged total.
type LeadPage struct {
	Leads []Lead `json:"leads"`
	Total int    `json:"totalResults"`
}
