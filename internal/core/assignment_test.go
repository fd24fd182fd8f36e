package core

import (
	"context"
	"fmt"
	"testing"

	"crm.service/internal/core/model"
	"crm.service/internal/ports/messaging"
	"crm.service/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchTier(t *testing.T) {
	directory := []model.Employee{
		{ID: "a", Language: model.LanguageHindi, Location: model.LocationPune},
		{ID: "b", Language: model.LanguageEnglish, Location: model.LocationPune},
		{ID: "c", Language: model.LanguageTamil, Location: model.LocationDelhi},
	}

	tests := []struct {
		name string
		lang model.Language
		loc  model.Location
		tier int
		ids  []string
	}{
		{"exact", model.LanguageHindi, model.LocationPune, TierExact, []string{"a"}},
		{"language only", model.LanguageTamil, model.LocationHyderabad, TierPartial, []string{"c"}},
		{"location only", model.LanguageBengali, model.LocationPune, TierPartial, []string{"a", "b"}},
		{"nobody matches", model.LanguageBengali, model.LocationHyderabad, TierAll, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, candidates := MatchTier(directory, tt.lang, tt.loc)
			assert.Equal(t, tt.tier, tier)
			var ids []string
			for _, c := range candidates {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	tier, candidates := MatchTier(nil, model.LanguageHindi, model.LocationPune)
	assert.Equal(t, TierNone, tier)
	assert.Empty(t, candidates)
}

func TestLeastLoadedBreaksTiesByID(t *testing.T) {
	candidates := []model.Employee{{ID: "c"}, {ID: "a"}, {ID: "b"}}

	id, ok := LeastLoaded(candidates, map[string]int{"a": 2, "b": 1, "c": 1})
	require.True(t, ok)
	assert.Equal(t, "b", id)

	_, ok = LeastLoaded(nil, nil)
	assert.False(t, ok)
}

func TestCreateLeadAssignsExactMatch(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("e1", model.LanguageHindi, model.LocationPune)
	f.store.addEmployee("e2", model.LanguageEnglish, model.LocationDelhi)

	lead, err := f.leads.CreateLead(context.Background(), CreateLeadInput{
		Name: "Asha", Email: "ASHA@example.com", Language: "Hindi", Location: "Pune",
	})
	require.NoError(t, err)

	require.NotNil(t, lead.AssignedTo)
	assert.Equal(t, "e1", *lead.AssignedTo)
	assert.Equal(t, "asha@example.com", *lead.Email)
	assert.Equal(t, model.LeadWarm, lead.Type)
	assert.Equal(t, model.LeadPending, lead.Status)

	require.Len(t, f.publisher.notifications, 1)
	assert.Equal(t, messaging.NotificationLeadAssigned, f.publisher.notifications[0].Kind)
	assert.Equal(t, "e1", f.publisher.notifications[0].EmployeeID)
}

func TestCreateLeadFallsBackToLeastLoaded(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("e1", model.LanguageEnglish, model.LocationDelhi)
	f.store.addEmployee("e2", model.LanguageEnglish, model.LocationDelhi)
	f.store.addLead("old", "e1", model.LeadPending)
	f.store.addLead("done", "e2", model.LeadClosed)

	lead, err := f.leads.CreateLead(context.Background(), CreateLeadInput{
		Name: "Ravi", Phone: "+91 99999 00000", Language: "Tamil", Location: "Hyderabad",
	})
	require.NoError(t, err)

	// Nobody matches, so the whole directory competes; closed leads do not count.
	require.NotNil(t, lead.AssignedTo)
	assert.Equal(t, "e2", *lead.AssignedTo)
}

func TestCreateLeadSpreadsEvenly(t *testing.T) {
	f := newFixture()
	for i := 0; i < 3; i++ {
		f.store.addEmployee(fmt.Sprintf("e%d", i), model.LanguageEnglish, model.LocationDelhi)
	}

	for i := 0; i < 9; i++ {
		_, err := f.leads.CreateLead(context.Background(), CreateLeadInput{
			Name: fmt.Sprintf("Lead %d", i), Email: fmt.Sprintf("l%d@example.com", i), Language: "English", Location: "Delhi",
		})
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, 3, f.store.pendingOf(fmt.Sprintf("e%d", i)))
	}
}

func TestCreateLeadEmptyDirectoryLeavesUnassigned(t *testing.T) {
	f := newFixture()

	lead, err := f.leads.CreateLead(context.Background(), CreateLeadInput{
		Name: "Solo", Email: "solo@example.com", Language: "English", Location: "Delhi",
	})
	require.NoError(t, err)
	assert.Nil(t, lead.AssignedTo)
	assert.Empty(t, f.publisher.notifications)
	assert.Contains(t, f.store.leads, lead.ID)
}

func TestCreateLeadDirectAssignee(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("e1", model.LanguageHindi, model.LocationPune)
	f.store.addEmployee("e2", model.LanguageEnglish, model.LocationDelhi)

	lead, err := f.leads.CreateLead(context.Background(), CreateLeadInput{
		Name: "Direct", Email: "direct@example.com", Language: "Hindi", Location: "Pune", AssigneeID: "e2",
	})
	require.NoError(t, err)
	assert.Equal(t, "e2", *lead.AssignedTo)

	_, err = f.leads.CreateLead(context.Background(), CreateLeadInput{
		Name: "Nobody", Email: "nobody@example.com", Language: "Hindi", Location: "Pune", AssigneeID: "ghost",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestCreateLeadValidation(t *testing.T) {
	f := newFixture()
	f.store.addLead("dup", "", model.LeadPending)

	tests := []struct {
		name  string
		in    CreateLeadInput
		field string
	}{
		{"missing name", CreateLeadInput{Email: "a@b.co", Language: "English", Location: "Delhi"}, "name"},
		{"no contact", CreateLeadInput{Name: "x", Language: "English", Location: "Delhi"}, "email"},
		{"bad email", CreateLeadInput{Name: "x", Email: "not-an-email", Language: "English", Location: "Delhi"}, "email"},
		{"bad language", CreateLeadInput{Name: "x", Email: "a@b.co", Language: "Klingon", Location: "Delhi"}, "language"},
		{"bad location", CreateLeadInput{Name: "x", Email: "a@b.co", Language: "English", Location: "Mars"}, "location"},
		{"bad type", CreateLeadInput{Name: "x", Email: "a@b.co", Language: "English", Location: "Delhi", LeadType: "Lukewarm"}, "leadType"},
		{"duplicate email", CreateLeadInput{Name: "x", Email: "dup@lead.test", Language: "English", Location: "Delhi"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.leads.CreateLead(context.Background(), tt.in)
			require.Error(t, err)
			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperror.KindValidation, appErr.Kind)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
	assert.Len(t, f.store.leads, 1)
}

func TestAssignLostRaceIsConflict(t *testing.T) {
	f := newFixture()
	f.store.addEmployee("e1", model.LanguageEnglish, model.LocationDelhi)
	f.store.assignLost = true

	_, err := f.leads.CreateLead(context.Background(), CreateLeadInput{
		Name: "Race", Email: "race@example.com", Language: "English", Location: "Delhi",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
}

func TestAssignKeepsExistingOwner(t *testing.T) {
	f := newFixture()
	engine := NewAssignmentEngine(fakeEmployees{f.store}, fakeLeads{f.store})
	owner := "e9"

	id, err := engine.Assign(context.Background(), &model.Lead{ID: "l1", AssignedTo: &owner})
	require.NoError(t, err)
	assert.Equal(t, "e9", id)
}
