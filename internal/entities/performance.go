package entities

import "time"

// Performance records a musician performing a song on an instrument for a fee.
type Performance struct {
	ID           int64
	MusicianID   int64
	InstrumentID int64
	SongTitle    string
	FeePaid      float64
	PerformedOn  time.Time

	// Loaded on demand by the repository
	Musician   *Musician
	Instrument *Instrument
}

// Validate checks if the performance is valid
func (p *Performance) Validate() error {
	if p.MusicianID == 0 {
		return NewValidation("musician ID is required")
	}
	if p.InstrumentID == 0 {
		return NewValidation("instrument ID is required")
	}
	if p.SongTitle == "" {
		return NewValidation("song title is required")
	}
	if p.FeePaid < 0 {
		return NewValidation("fee paid cannot be negative")
	}
	return nil
}

// PerformanceSummary is the per-musician aggregate over all performances.
type PerformanceSummary struct {
	MusicianID        int64
	FormalName        string
	TotalPerformances int
	AverageFeePaid    float64
	HighestFeePaid    float64
	LowestFeePaid     float64
}
