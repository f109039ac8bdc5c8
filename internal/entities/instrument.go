package entities

// Instrument represents an instrument that musicians can play.
type Instrument struct {
	ID         int64
	Name       string
	CreatedBy  string
	RowVersion string

	// Loaded on demand by the repository
	Plays []*Play
}

// PlayedByMusicianIDs returns the IDs of the musicians currently linked
// through Plays.
func (i *Instrument) PlayedByMusicianIDs() []int64 {
	ids := make([]int64, 0, len(i.Plays))
	for _, p := range i.Plays {
		ids = append(ids, p.MusicianID)
	}
	return ids
}

// Validate checks if the instrument is valid
func (i *Instrument) Validate() error {
	if i.Name == "" {
		return NewValidation("name is required")
	}
	return nil
}
