package services

import "github.com/asakaida/gakudan/internal/entities"

// addFieldConflict appends a diff entry when the attempted and current
// values differ. Used to build the field-by-field report for a failed
// optimistic update.
func addFieldConflict(fields []entities.FieldConflict, name, attempted, current string) []entities.FieldConflict {
	if attempted == current {
		return fields
	}
	return append(fields, entities.FieldConflict{
		Field:     name,
		Attempted: attempted,
		Current:   current,
	})
}
