package core

import (
	"context"
	"strings"
	"testing"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEmployeeDefaults(t *testing.T) {
	f := newFixture()

	emp, err := f.employees.CreateEmployee(context.Background(), CreateEmployeeInput{
		FirstName: " Priya ", LastName: "Nair", Email: "Priya.Nair@Example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Priya", emp.FirstName)
	assert.Equal(t, "priya.nair@example.com", emp.Email)
	assert.Equal(t, model.LanguageEnglish, emp.Language)
	assert.Equal(t, model.LocationDelhi, emp.Location)
	assert.True(t, strings.HasPrefix(emp.CustomID, "EMP-"))
	assert.Len(t, emp.CustomID, len("EMP-")+8)
	assert.False(t, emp.Active)
}

func TestCreateEmployeeValidation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name  string
		in    CreateEmployeeInput
		field string
	}{
		{"first name", CreateEmployeeInput{LastName: "N", Email: "a@b.co"}, "firstName"},
		{"last name", CreateEmployeeInput{FirstName: "P", Email: "a@b.co"}, "lastName"},
		{"email", CreateEmployeeInput{FirstName: "P", LastName: "N", Email: "nope"}, "email"},
		{"language", CreateEmployeeInput{FirstName: "P", LastName: "N", Email: "a@b.co", Language: "Latin"}, "language"},
		{"location", CreateEmployeeInput{FirstName: "P", LastName: "N", Email: "a@b.co", Location: "Goa"}, "location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.employees.CreateEmployee(context.Background(), tt.in)
			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestCreateEmployeeDuplicateEmail(t *testing.T) {
	f := newFixture()
	in := CreateEmployeeInput{FirstName: "P", LastName: "N", Email: "p@example.com", Language: "hindi", Location: "pune"}

	emp, err := f.employees.CreateEmployee(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.LanguageHindi, emp.Language)

	_, err = f.employees.CreateEmployee(context.Background(), in)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
