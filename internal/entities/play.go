package entities

import "fmt"

// Play is the association record of the Musician-Instrument many-to-many
// relationship. It carries nothing beyond the two foreign identifiers and
// is uniquely identified by the pair.
type Play struct {
	MusicianID   int64
	InstrumentID int64
}

// String returns "musician:<id>#plays@instrument:<id>"
func (p *Play) String() string {
	return fmt.Sprintf("musician:%d#plays@instrument:%d", p.MusicianID, p.InstrumentID)
}

// Validate checks if the play is valid
func (p *Play) Validate() error {
	if p.MusicianID == 0 {
		return fmt.Errorf("musician ID is required")
	}
	if p.InstrumentID == 0 {
		return fmt.Errorf("instrument ID is required")
	}
	return nil
}
