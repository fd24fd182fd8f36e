package core

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts the current time so services can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// RealClock returns the wall clock in UTC.
func RealClock() Clock { return realClock{} }

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newID() string { return uuid.NewString() }
