// Package csvimport turns an uploaded lead sheet into import rows.
package csvimport

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
)

// Column headers, matched case-insensitively. Only name is mandatory.
const (
	ColName         = "name"
	ColEmail        = "email"
	ColPhone        = "phone"
	ColLanguage     = "language"
	ColLocation     = "location"
	ColLeadType     = "leadtype"
	ColReceivedDate = "receiveddate"
	ColAssignee     = "assignedemployee"
)

// Parse reads a header line followed by one lead per line. Line numbers in
// the result count the header as line 1. Blank lines are skipped.
func Parse(r io.Reader) ([]model.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperror.Validation("csvData", "csv data is empty")
	}
	if err != nil {
		return nil, apperror.Validation("csvData", "invalid csv header: %s", err.Error())
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.NewReplacer("_", "", " ", "").Replace(key)
		index[key] = i
	}
	if _, ok := index[ColName]; !ok {
		return nil, apperror.Validation("csvData", "csv header must contain a %q column", ColName)
	}

	var rows []model.ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperror.Validation("csvData", "invalid csv: %s", err.Error())
		}
		if blank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rows = append(rows, model.ImportRow{
			Line:         line,
			Name:         get(ColName),
			Email:        get(ColEmail),
			Phone:        get(ColPhone),
			Language:     get(ColLanguage),
			Location:     get(ColLocation),
			LeadType:     get(ColLeadType),
			ReceivedDate: get(ColReceivedDate),
			AssignedTo:   get(ColAssignee),
		})
	}

	if len(rows) == 0 {
		return nil, apperror.Validation("csvData", "csv data has no rows")
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
