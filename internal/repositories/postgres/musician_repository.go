package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/pkg/paging"
)

// PostgresMusicianRepository is the PostgreSQL implementation of MusicianRepository.
type PostgresMusicianRepository struct {
	db *sql.DB
}

// NewPostgresMusicianRepository creates a new PostgresMusicianRepository.
func NewPostgresMusicianRepository(db *sql.DB) repositories.MusicianRepository {
	return &PostgresMusicianRepository{db: db}
}

// Create inserts a musician and its initial play links in one transaction.
func (r *PostgresMusicianRepository) Create(ctx context.Context, musician *entities.Musician, playInstrumentIDs []int64) error {
	return withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		version := uuid.NewString()
		query := `
			INSERT INTO musicians (first_name, middle_name, last_name, phone, dob, sin, instrument_id, created_by, row_version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query,
			musician.FirstName, musician.MiddleName, musician.LastName,
			musician.Phone, musician.DOB, musician.SIN,
			musician.InstrumentID, musician.CreatedBy, version,
		).Scan(&musician.ID)
		if err != nil {
			return mapError(err)
		}

		if err := insertPlays(ctx, tx, musician.ID, playInstrumentIDs); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		musician.RowVersion = version
		return nil
	})
}

// GetByID loads a musician with its primary instrument and play links.
func (r *PostgresMusicianRepository) GetByID(ctx context.Context, id int64) (*entities.Musician, error) {
	query := `
		SELECT m.id, m.first_name, m.middle_name, m.last_name, m.phone, m.dob, m.sin,
		       m.instrument_id, m.created_by, m.row_version, i.name
		FROM musicians m
		JOIN instruments i ON i.id = m.instrument_id
		WHERE m.id = $1
	`
	musician := &entities.Musician{}
	var instrumentName string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&musician.ID, &musician.FirstName, &musician.MiddleName, &musician.LastName,
		&musician.Phone, &musician.DOB, &musician.SIN,
		&musician.InstrumentID, &musician.CreatedBy, &musician.RowVersion,
		&instrumentName,
	)
	if err == sql.ErrNoRows {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get musician: %w", err)
	}
	musician.Instrument = &entities.Instrument{ID: musician.InstrumentID, Name: instrumentName}

	musician.Plays, err = r.loadPlays(ctx, musician.ID)
	if err != nil {
		return nil, err
	}
	return musician, nil
}

func (r *PostgresMusicianRepository) loadPlays(ctx context.Context, musicianID int64) ([]*entities.Play, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT musician_id, instrument_id FROM plays WHERE musician_id = $1 ORDER BY instrument_id`,
		musicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to load play links: %w", err)
	}
	defer rows.Close()

	var plays []*entities.Play
	for rows.Next() {
		p := &entities.Play{}
		if err := rows.Scan(&p.MusicianID, &p.InstrumentID); err != nil {
			return nil, fmt.Errorf("failed to scan play link: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// List returns a filtered, sorted, stably-paginated page of musicians.
func (r *PostgresMusicianRepository) List(ctx context.Context, query repositories.MusicianQuery) (*paging.Page[*entities.Musician], error) {
	conditions := []string{}
	args := []interface{}{}
	argIdx := 1

	f := query.Filter
	if f.SearchName != "" {
		conditions = append(conditions,
			fmt.Sprintf("(m.first_name ILIKE $%d OR m.last_name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+f.SearchName+"%")
		argIdx++
	}
	if f.SearchPhone != "" {
		conditions = append(conditions, fmt.Sprintf("m.phone ILIKE $%d", argIdx))
		args = append(args, "%"+f.SearchPhone+"%")
		argIdx++
	}
	if f.InstrumentID != 0 {
		conditions = append(conditions, fmt.Sprintf("m.instrument_id = $%d", argIdx))
		args = append(args, f.InstrumentID)
		argIdx++
	}
	if f.PlaysInstrumentID != 0 {
		conditions = append(conditions,
			fmt.Sprintf("EXISTS (SELECT 1 FROM plays p WHERE p.musician_id = m.id AND p.instrument_id = $%d)", argIdx))
		args = append(args, f.PlaysInstrumentID)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM musicians m %s`, where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count musicians: %w", err)
	}

	size := paging.NormalizeSize(query.PageSize)
	index := paging.ClampIndex(query.PageIndex, total, size)

	listQuery := fmt.Sprintf(`
		SELECT m.id, m.first_name, m.middle_name, m.last_name, m.phone, m.dob, m.sin,
		       m.instrument_id, m.created_by, m.row_version, i.name
		FROM musicians m
		JOIN instruments i ON i.id = m.instrument_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, musicianOrderBy(query.SortField, query.SortDescending), argIdx, argIdx+1)
	args = append(args, size, paging.Offset(index, size))

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list musicians: %w", err)
	}
	defer rows.Close()

	var musicians []*entities.Musician
	for rows.Next() {
		m := &entities.Musician{}
		var instrumentName string
		if err := rows.Scan(
			&m.ID, &m.FirstName, &m.MiddleName, &m.LastName,
			&m.Phone, &m.DOB, &m.SIN,
			&m.InstrumentID, &m.CreatedBy, &m.RowVersion,
			&instrumentName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan musician: %w", err)
		}
		m.Instrument = &entities.Instrument{ID: m.InstrumentID, Name: instrumentName}
		musicians = append(musicians, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate musicians: %w", err)
	}

	page := paging.New(musicians, total, index, size)
	return &page, nil
}

// musicianOrderBy maps a sort key to a whitelisted ORDER BY clause. Every
// clause ends in name and ID columns so page boundaries are stable.
func musicianOrderBy(field string, descending bool) string {
	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	switch field {
	case repositories.MusicianSortPhone:
		return fmt.Sprintf("m.phone %s, m.last_name, m.first_name, m.id", dir)
	case repositories.MusicianSortAge:
		// Age ascending means date of birth descending.
		if descending {
			return "m.dob ASC, m.last_name, m.first_name, m.id"
		}
		return "m.dob DESC, m.last_name, m.first_name, m.id"
	case repositories.MusicianSortInstrument:
		return fmt.Sprintf("i.name %s, m.last_name, m.first_name, m.id", dir)
	default:
		return fmt.Sprintf("m.last_name %s, m.first_name %s, m.id", dir, dir)
	}
}

// ListAll returns all musicians ordered by formal name.
func (r *PostgresMusicianRepository) ListAll(ctx context.Context) ([]*entities.Musician, error) {
	query := `
		SELECT id, first_name, middle_name, last_name, phone, dob, sin,
		       instrument_id, created_by, row_version
		FROM musicians
		ORDER BY last_name, first_name, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list musicians: %w", err)
	}
	defer rows.Close()

	var musicians []*entities.Musician
	for rows.Next() {
		m := &entities.Musician{}
		if err := rows.Scan(
			&m.ID, &m.FirstName, &m.MiddleName, &m.LastName,
			&m.Phone, &m.DOB, &m.SIN,
			&m.InstrumentID, &m.CreatedBy, &m.RowVersion,
		); err != nil {
			return nil, fmt.Errorf("failed to scan musician: %w", err)
		}
		musicians = append(musicians, m)
	}
	return musicians, rows.Err()
}

// Update applies field updates plus a play-link delta, guarded by a
// compare-and-swap on the row version token.
func (r *PostgresMusicianRepository) Update(ctx context.Context, musician *entities.Musician, expectedVersion string, addPlays, removePlays []int64) (string, error) {
	var newVersion string
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		version := uuid.NewString()
		query := `
			UPDATE musicians
			SET first_name = $1, middle_name = $2, last_name = $3, phone = $4,
			    dob = $5, sin = $6, instrument_id = $7, row_version = $8
			WHERE id = $9 AND row_version = $10
		`
		result, err := tx.ExecContext(ctx, query,
			musician.FirstName, musician.MiddleName, musician.LastName, musician.Phone,
			musician.DOB, musician.SIN, musician.InstrumentID, version,
			musician.ID, expectedVersion,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			// The guard did not match: either another writer advanced the
			// token, or the row is gone entirely.
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM musicians WHERE id = $1)`, musician.ID,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check musician existence: %w", err)
			}
			if exists {
				return entities.ErrStaleVersion
			}
			return entities.ErrDeletedConcurrently
		}

		if err := insertPlays(ctx, tx, musician.ID, addPlays); err != nil {
			return err
		}
		if err := deletePlays(ctx, tx, musician.ID, removePlays); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		newVersion = version
		return nil
	})
	if err != nil {
		return "", err
	}
	return newVersion, nil
}

// Delete removes a musician. Play links, photos and documents cascade.
func (r *PostgresMusicianRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM musicians WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrNotFound
	}
	return nil
}

// Exists checks whether a musician with the given ID exists.
func (r *PostgresMusicianRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM musicians WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check musician existence: %w", err)
	}
	return exists, nil
}

// insertPlays adds play links inside the given transaction. Existing links
// are left alone.
func insertPlays(ctx context.Context, tx *sql.Tx, musicianID int64, instrumentIDs []int64) error {
	if len(instrumentIDs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plays (musician_id, instrument_id)
		VALUES ($1, $2)
		ON CONFLICT (musician_id, instrument_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare play insert: %w", err)
	}
	defer stmt.Close()

	for _, instrumentID := range instrumentIDs {
		if _, err := stmt.ExecContext(ctx, musicianID, instrumentID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// deletePlays removes play links inside the given transaction.
func deletePlays(ctx context.Context, tx *sql.Tx, musicianID int64, instrumentIDs []int64) error {
	if len(instrumentIDs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		DELETE FROM plays WHERE musician_id = $1 AND instrument_id = $2
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare play delete: %w", err)
	}
	defer stmt.Close()

	for _, instrumentID := range instrumentIDs {
		if _, err := stmt.ExecContext(ctx, musicianID, instrumentID); err != nil {
			return mapError(err)
		}
	}
	return nil
}
