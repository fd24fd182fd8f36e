package core

import (
	"context"
	"fmt"
	"testing"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadSetNext(t *testing.T) {
	ws := NewWorkloadSet([]string{"y", "z"}, map[string]int{"y": 1, "z": 1})

	var got []string
	for i := 0; i < 3; i++ {
		id, ok := ws.Next()
		require.True(t, ok)
		got = append(got, id)
	}

	assert.Equal(t, []string{"y", "z", "y"}, got)
	assert.Equal(t, []model.Workload{{EmployeeID: "y", Pending: 3}, {EmployeeID: "z", Pending: 2}}, ws.Snapshot())

	ws.Release("y")
	assert.Equal(t, 2, ws.Snapshot()[0].Pending)

	_, ok := NewWorkloadSet(nil, nil).Next()
	assert.False(t, ok)
}

func TestWorkloadSetStaysBalanced(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	ws := NewWorkloadSet(ids, map[string]int{"a": 5, "b": 5, "c": 5, "d": 5})

	for i := 0; i < 37; i++ {
		ws.Next()
	}

	lo, hi := 1<<30, 0
	for _, w := range ws.Snapshot() {
		lo, hi = min(lo, w.Pending), max(hi, w.Pending)
	}
	assert.LessOrEqual(t, hi-lo, 1)
}

// X leaves with two pending leads while Y and Z hold one each: both end up
// with two, and a single fresh read of the counts would not achieve that.
func TestRemoveEmployeeRedistributesGreedily(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.addEmployee("x", model.LanguageEnglish, model.LocationDelhi)
	f.store.addEmployee("y", model.LanguageEnglish, model.LocationDelhi)
	f.store.addEmployee("z", model.LanguageEnglish, model.LocationDelhi)
	f.store.addLead("x1", "x", model.LeadPending)
	f.store.addLead("x2", "x", model.LeadPending)
	f.store.addLead("x3", "x", model.LeadClosed)
	f.store.addLead("y1", "y", model.LeadPending)
	f.store.addLead("z1", "z", model.LeadPending)

	report, err := f.employees.RemoveEmployee(ctx, "x")
	require.NoError(t, err)

	assert.Equal(t, model.RemovalReport{Moved: 2, Unassigned: 0, Released: 1}, report)
	assert.Equal(t, 2, f.store.pendingOf("y"))
	assert.Equal(t, 2, f.store.pendingOf("z"))
	assert.Nil(t, f.store.leads["x3"].AssignedTo)
	assert.Equal(t, model.LeadClosed, f.store.leads["x3"].Status)
	assert.NotContains(t, f.store.employees, "x")

	require.Len(t, f.publisher.notifications, 2)
	assert.ElementsMatch(t, []string{"y", "z"},
		[]string{f.publisher.notifications[0].EmployeeID, f.publisher.notifications[1].EmployeeID})
}

func TestRemoveLastEmployeeUnassignsLeads(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("x", model.LanguageEnglish, model.LocationDelhi)
	f.store.addLead("x1", "x", model.LeadPending)
	f.store.addLead("x2", "x", model.LeadPending)

	report, err := f.employees.RemoveEmployee(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Unassigned)
	assert.Nil(t, f.store.leads["x1"].AssignedTo)
	assert.Nil(t, f.store.leads["x2"].AssignedTo)
	assert.Empty(t, f.store.employees)
	assert.Empty(t, f.publisher.notifications)
}

func TestRemoveEmployeeWithoutLeads(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("x", model.LanguageEnglish, model.LocationDelhi)
	f.store.addEmployee("y", model.LanguageEnglish, model.LocationDelhi)

	report, err := f.employees.RemoveEmployee(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, model.RemovalReport{}, report)
	assert.Len(t, f.store.employees, 1)
}

func TestRemoveUnknownEmployee(t *testing.T) {
	f := newFixture()

	_, err := f.employees.RemoveEmployee(context.Background(), "ghost")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestRedistributionBalancesManyLeads(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("x", model.LanguageEnglish, model.LocationDelhi)
	for _, id := range []string{"a", "b", "c"} {
		f.store.addEmployee(id, model.LanguageEnglish, model.LocationDelhi)
	}
	f.store.addLead("a0", "a", model.LeadPending)
	f.store.addLead("a1", "a", model.LeadPending)
	for i := 0; i < 10; i++ {
		f.store.addLead(fmt.Sprintf("x%02d", i), "x", model.LeadPending)
	}

	engine := NewRedistributionEngine(fakeEmployees{f.store}, fakeLeads{f.store}, f.clock)
	res, err := engine.Redistribute(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, res.Moves, 10)

	// 12 leads over three people.
	assert.Equal(t, 4, f.store.pendingOf("a"))
	assert.Equal(t, 4, f.store.pendingOf("b"))
	assert.Equal(t, 4, f.store.pendingOf("c"))
	assert.Equal(t, 0, f.store.pendingOf("x"))
}

func TestRemoveEmployeeClearsScheduleWhenSlotTaken(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("x", model.LanguageEnglish, model.LocationDelhi)
	f.store.addEmployee("y", model.LanguageEnglish, model.LocationDelhi)
	scheduledLead(f, "y1", "y", "2025-06-10", "14:30", model.LeadPending)
	scheduledLead(f, "x1", "x", "2025-06-10", "14:30", model.LeadPending)
	scheduledLead(f, "x2", "x", "2025-06-10", "16:00", model.LeadPending)

	report, err := f.employees.RemoveEmployee(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Moved)
	assert.Equal(t, 1, report.SchedulesCleared)
	assert.Equal(t, 3, f.store.pendingOf("y"))

	assert.Nil(t, f.store.leads["x1"].Schedule)
	assert.Equal(t, "y", *f.store.leads["x1"].AssignedTo)
	require.NotNil(t, f.store.leads["x2"].Schedule)
	assert.Equal(t, "16:00", f.store.leads["x2"].Schedule.Time)
	assert.Equal(t, "14:30", f.store.leads["y1"].Schedule.Time)
}

func TestRedistributionKeepsFreeSlots(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("x", model.LanguageEnglish, model.LocationDelhi)
	f.store.addEmployee("y", model.LanguageEnglish, model.LocationDelhi)
	scheduledLead(f, "y1", "y", "2025-06-10", "14:30", model.LeadClosed)
	scheduledLead(f, "x1", "x", "2025-06-10", "14:30", model.LeadPending)

	engine := NewRedistributionEngine(fakeEmployees{f.store}, fakeLeads{f.store}, f.clock)
	res, err := engine.Redistribute(context.Background(), "x")
	require.NoError(t, err)

	require.Len(t, res.Moves, 1)
	assert.False(t, res.Moves[0].ScheduleCleared)
	assert.Equal(t, 0, res.SchedulesCleared)
	require.NotNil(t, f.store.leads["x1"].Schedule)
}
