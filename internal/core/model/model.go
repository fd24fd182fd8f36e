package model

import "strings"

// Language is the spoken language shared by an employee and the leads they serve.
type Language string

const (
	LanguageHindi   Language = "Hindi"
	LanguageEnglish Language = "English"
	LanguageBengali Language = "Bengali"
	LanguageTamil   Language = "Tamil"
)

var languages = []Language{LanguageHindi, LanguageEnglish, LanguageBengali, LanguageTamil}

// Location is the office region an employee works from.
type Location string

const (
	LocationPune      Location = "Pune"
	LocationHyderabad Location = "Hyderabad"
	LocationDelhi     Location = "Delhi"
)

var locations = []Location{LocationPune, LocationHyderabad, LocationDelhi}

// ParseLanguage matches s case-insensitively against the known languages.
func ParseLanguage(s string) (Language, bool) {
	for _, l := range languages {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, true
		}
	}
	return "", false
}

// ParseLocation matches s case-insensitively against the known locations.
func ParseLocation(s string) (Location, bool) {
	for _, l := range locations {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, true
		}
	}
	return "", false
}

// ExportStatus tracks delivery of a closed attendance day to the HR system.
type ExportStatus string

const (
	ExportPending   ExportStatus = "PENDING"
	ExportCompleted ExportStatus = "COMPLETED"
	ExportFailed    ExportStatus = "FAILED"
)
