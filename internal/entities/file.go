package entities

// MusicianPhoto holds the resized display copy and thumbnail of a
// musician's photo. One photo per musician.
type MusicianPhoto struct {
	MusicianID int64
	Content    []byte
	Thumbnail  []byte
	MimeType   string
}

// MusicianDocument is an arbitrary uploaded file attached to a musician.
type MusicianDocument struct {
	ID         int64
	MusicianID int64
	FileName   string
	MimeType   string
	Content    []byte
}

// Validate checks if the document is valid
func (d *MusicianDocument) Validate() error {
	if d.MusicianID == 0 {
		return NewValidation("musician ID is required")
	}
	if d.FileName == "" {
		return NewValidation("file name is required")
	}
	if len(d.Content) == 0 {
		return NewValidation("content is required")
	}
	return nil
}
