package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("2025-03-10", "9:05")
	require.NoError(t, err)

	assert.Equal(t, "09:05", s.Time)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC), s.Instant())

	_, err = ParseSchedule("10/03/2025", "09:05")
	assert.Error(t, err)
	_, err = ParseSchedule("2025-03-10", "25:00")
	assert.Error(t, err)
}

func TestParseLanguageAndLocation(t *testing.T) {
	l, ok := ParseLanguage(" english ")
	assert.True(t, ok)
	assert.Equal(t, LanguageEnglish, l)

	_, ok = ParseLanguage("French")
	assert.False(t, ok)

	loc, ok := ParseLocation("HYDERABAD")
	assert.True(t, ok)
	assert.Equal(t, LocationHyderabad, loc)
}

func TestAttendanceRecordCloneDoesNotAlias(t *testing.T) {
	rec := AttendanceRecord{WorkPeriods: []WorkPeriod{{Start: time.Now()}}}
	c := rec.Clone()
	end := time.Now()
	c.WorkPeriods[0].End = &end

	assert.Nil(t, rec.WorkPeriods[0].End)
}

func TestAttendanceRecordCloneKeepsNilLists(t *testing.T) {
	rec := AttendanceRecord{WorkPeriods: []WorkPeriod{{Start: time.Now()}}}
	c := rec.Clone()

	assert.Nil(t, c.Breaks)
	assert.Equal(t, rec, c)

	empty := AttendanceRecord{Breaks: []BreakPeriod{}}
	assert.NotNil(t, empty.Clone().Breaks)
}

func TestAttendanceTotals(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	at := func(h int) *time.Time { v := base.Add(time.Duration(h) * time.Hour); return &v }

	rec := AttendanceRecord{
		WorkPeriods: []WorkPeriod{{Start: base, End: at(2)}, {Start: *at(3), End: at(5)}, {Start: *at(6)}},
		Breaks:      []BreakPeriod{{BreakStart: *at(2), BreakEnd: at(3)}},
	}
	worked, onBreak := rec.Totals()

	assert.Equal(t, 4*time.Hour, worked)
	assert.Equal(t, time.Hour, onBreak)
}
