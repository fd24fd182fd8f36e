package core

import (
	"context"
	"testing"
	"time"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseScheduleUpdate(t *testing.T) {
	tests := []struct {
		name    string
		date    *string
		clock   *string
		touched bool
		set     bool
		wantErr bool
	}{
		{"absent", nil, nil, false, false, false},
		{"clear", strp(""), strp(""), true, false, false},
		{"set", strp("2025-06-10"), strp("14:30"), true, true, false},
		{"date only", strp("2025-06-10"), nil, false, false, true},
		{"time only", nil, strp("14:30"), false, false, true},
		{"half cleared", strp(""), strp("14:30"), false, false, true},
		{"bad date", strp("10/06/2025"), strp("14:30"), false, false, true},
		{"bad time", strp("2025-06-10"), strp("2pm"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			touched, s, err := ParseScheduleUpdate(tt.date, tt.clock)
			if tt.wantErr {
				assert.True(t, apperror.IsKind(err, apperror.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.touched, touched)
			assert.Equal(t, tt.set, s != nil)
		})
	}
}

func TestScheduleInstantIsUTC(t *testing.T) {
	s, err := model.ParseSchedule("2025-06-10", "14:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC), s.Instant())
}

func scheduledLead(f *fixture, id, owner string, date, clock string, status model.LeadStatus) {
	l := f.store.addLead(id, owner, status)
	s, _ := model.ParseSchedule(date, clock)
	l.Schedule = &s
	f.store.leads[id] = l
}

func TestUpdateLeadScheduleConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.addEmployee("e1", model.LanguageEnglish, model.LocationDelhi)
	scheduledLead(f, "booked", "e1", "2025-06-10", "14:30", model.LeadPending)
	f.store.addLead("l2", "e1", model.LeadPending)

	_, err := f.leads.UpdateLead(ctx, "l2", UpdateLeadInput{ScheduledDate: strp("2025-06-10"), ScheduledTime: strp("14:30")})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Nil(t, f.store.leads["l2"].Schedule)

	updated, err := f.leads.UpdateLead(ctx, "l2", UpdateLeadInput{ScheduledDate: strp("2025-06-10"), ScheduledTime: strp("15:00")})
	require.NoError(t, err)
	assert.Equal(t, "15:00", updated.Schedule.Time)
	assert.Equal(t, int64(2), updated.Version)
}

func TestUpdateLeadClosedLeadsDoNotBlockSlot(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("e1", model.LanguageEnglish, model.LocationDelhi)
	scheduledLead(f, "old", "e1", "2025-06-10", "14:30", model.LeadClosed)
	f.store.addLead("l2", "e1", model.LeadPending)

	_, err := f.leads.UpdateLead(context.Background(), "l2", UpdateLeadInput{ScheduledDate: strp("2025-06-10"), ScheduledTime: strp("14:30")})
	assert.NoError(t, err)
}

func TestUpdateLeadRescheduleSameSlot(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("e1", model.LanguageEnglish, model.LocationDelhi)
	scheduledLead(f, "l1", "e1", "2025-06-10", "14:30", model.LeadPending)

	_, err := f.leads.UpdateLead(context.Background(), "l1", UpdateLeadInput{ScheduledDate: strp("2025-06-10"), ScheduledTime: strp("14:30")})
	assert.NoError(t, err, "a lead does not collide with itself")
}

func TestUpdateLeadSlotBookedConcurrently(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("e1", model.LanguageEnglish, model.LocationDelhi)
	f.store.addLead("l1", "e1", model.LeadPending)
	f.store.addLead("l2", "e1", model.LeadPending)

	// l1 takes the slot after l2's check passed but before l2 is written.
	f.store.beforeLeadUpdate = func() {
		f.store.beforeLeadUpdate = nil
		scheduledLead(f, "l1", "e1", "2025-06-10", "14:30", model.LeadPending)
	}

	_, err := f.leads.UpdateLead(context.Background(), "l2", UpdateLeadInput{ScheduledDate: strp("2025-06-10"), ScheduledTime: strp("14:30")})

	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Nil(t, f.store.leads["l2"].Schedule)
}

func TestUpdateLeadClose(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.addEmployee("e1", model.LanguageEnglish, model.LocationDelhi)
	// Clock is 2025-06-02 09:00 UTC.
	scheduledLead(f, "future", "e1", "2025-06-02", "10:00", model.LeadPending)
	scheduledLead(f, "past", "e1", "2025-06-01", "10:00", model.LeadPending)

	_, err := f.leads.UpdateLead(ctx, "future", UpdateLeadInput{Status: strp("Closed")})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Equal(t, model.LeadPending, f.store.leads["future"].Status)

	closed, err := f.leads.UpdateLead(ctx, "past", UpdateLeadInput{Status: strp("Closed")})
	require.NoError(t, err)
	assert.Equal(t, model.LeadClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.clock.now, *closed.ClosedAt)

	// Clearing the schedule in the same update lets the lead close.
	closed, err = f.leads.UpdateLead(ctx, "future", UpdateLeadInput{
		Status: strp("Closed"), ScheduledDate: strp(""), ScheduledTime: strp(""),
	})
	require.NoError(t, err)
	assert.Nil(t, closed.Schedule)

	_, err = f.leads.UpdateLead(ctx, "past", UpdateLeadInput{Status: strp("Pending")})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict), "closed leads cannot be reopened")
}

func TestUpdateLeadRejectsIdentityFields(t *testing.T) {
	f := newFixture()
	f.store.addLead("l1", "", model.LeadPending)

	_, err := f.leads.UpdateLead(context.Background(), "l1", UpdateLeadInput{Email: strp("new@example.com")})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = f.leads.UpdateLead(context.Background(), "l1", UpdateLeadInput{Status: strp("Won")})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = f.leads.UpdateLead(context.Background(), "missing", UpdateLeadInput{LeadType: strp("Hot")})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestUpdateLeadTypeAndUnassignedSchedule(t *testing.T) {
	f := newFixture()
	f.store.addLead("l1", "", model.LeadPending)
	scheduledLead(f, "l2", "", "2025-06-10", "14:30", model.LeadPending)

	updated, err := f.leads.UpdateLead(context.Background(), "l1", UpdateLeadInput{
		LeadType: strp("Hot"), ScheduledDate: strp("2025-06-10"), ScheduledTime: strp("14:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.LeadHot, updated.Type)
	assert.NotNil(t, updated.Schedule)
}
