package entities

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var sinPattern = regexp.MustCompile(`^\d{9}$`)

// Musician represents a musician in the roster.
// RowVersion is an opaque token that changes on every committed update;
// it is the basis for optimistic concurrency control.
type Musician struct {
	ID           int64
	FirstName    string
	MiddleName   string
	LastName     string
	Phone        string
	DOB          time.Time
	SIN          string
	InstrumentID int64 // primary instrument
	CreatedBy    string
	RowVersion   string

	// Loaded on demand by the repository
	Instrument *Instrument
	Plays      []*Play
}

// FormalName returns the display name: "Last, First M."
func (m *Musician) FormalName() string {
	name := m.LastName + ", " + m.FirstName
	if m.MiddleName != "" {
		initial, _ := utf8.DecodeRuneInString(m.MiddleName)
		name += " " + strings.ToUpper(string(initial)) + "."
	}
	return name
}

// Age returns the musician's age in whole years as of now.
func (m *Musician) Age() int {
	return m.ageAt(time.Now())
}

func (m *Musician) ageAt(now time.Time) int {
	age := now.Year() - m.DOB.Year()
	if now.YearDay() < m.DOB.YearDay() {
		age--
	}
	return age
}

// PlayedInstrumentIDs returns the IDs of the instruments currently linked
// through Plays.
func (m *Musician) PlayedInstrumentIDs() []int64 {
	ids := make([]int64, 0, len(m.Plays))
	for _, p := range m.Plays {
		ids = append(ids, p.InstrumentID)
	}
	return ids
}

// Validate checks if the musician is valid
func (m *Musician) Validate() error {
	if m.FirstName == "" {
		return NewValidation("first name is required")
	}
	if m.LastName == "" {
		return NewValidation("last name is required")
	}
	if !sinPattern.MatchString(m.SIN) {
		return NewValidation("SIN must be exactly 9 digits")
	}
	if m.DOB.IsZero() {
		return NewValidation("date of birth is required")
	}
	if m.DOB.After(time.Now()) {
		return NewValidation("date of birth cannot be in the future")
	}
	if m.InstrumentID == 0 {
		return NewValidation("primary instrument is required")
	}
	return nil
}
