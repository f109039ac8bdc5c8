package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/pkg/paging"
)

// PostgresInstrumentRepository is the PostgreSQL implementation of InstrumentRepository.
type PostgresInstrumentRepository struct {
	db *sql.DB
}

// NewPostgresInstrumentRepository creates a new PostgresInstrumentRepository.
func NewPostgresInstrumentRepository(db *sql.DB) repositories.InstrumentRepository {
	return &PostgresInstrumentRepository{db: db}
}

// Create inserts an instrument and its initial play links in one transaction.
func (r *PostgresInstrumentRepository) Create(ctx context.Context, instrument *entities.Instrument, playMusicianIDs []int64) error {
	return withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		version := uuid.NewString()
		err = tx.QueryRowContext(ctx, `
			INSERT INTO instruments (name, created_by, row_version)
			VALUES ($1, $2, $3)
			RETURNING id
		`, instrument.Name, instrument.CreatedBy, version).Scan(&instrument.ID)
		if err != nil {
			return mapError(err)
		}

		for _, musicianID := range playMusicianIDs {
			if err := insertPlays(ctx, tx, musicianID, []int64{instrument.ID}); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		instrument.RowVersion = version
		return nil
	})
}

// GetByID loads an instrument with its play links.
func (r *PostgresInstrumentRepository) GetByID(ctx context.Context, id int64) (*entities.Instrument, error) {
	instrument := &entities.Instrument{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, row_version FROM instruments WHERE id = $1
	`, id).Scan(&instrument.ID, &instrument.Name, &instrument.CreatedBy, &instrument.RowVersion)
	if err == sql.ErrNoRows {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT musician_id, instrument_id FROM plays WHERE instrument_id = $1 ORDER BY musician_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load play links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := &entities.Play{}
		if err := rows.Scan(&p.MusicianID, &p.InstrumentID); err != nil {
			return nil, fmt.Errorf("failed to scan play link: %w", err)
		}
		instrument.Plays = append(instrument.Plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return instrument, nil
}

// List returns a page of instruments ordered by name then ID.
func (r *PostgresInstrumentRepository) List(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.Instrument], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instruments`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count instruments: %w", err)
	}

	size := paging.NormalizeSize(pageSize)
	index := paging.ClampIndex(pageIndex, total, size)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_by, row_version
		FROM instruments
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`, size, paging.Offset(index, size))
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	var instruments []*entities.Instrument
	for rows.Next() {
		inst := &entities.Instrument{}
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.CreatedBy, &inst.RowVersion); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instruments: %w", err)
	}

	page := paging.New(instruments, total, index, size)
	return &page, nil
}

// ListAll returns all instruments ordered by name.
func (r *PostgresInstrumentRepository) ListAll(ctx context.Context) ([]*entities.Instrument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_by, row_version FROM instruments ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	var instruments []*entities.Instrument
	for rows.Next() {
		inst := &entities.Instrument{}
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.CreatedBy, &inst.RowVersion); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}
	return instruments, rows.Err()
}

// Update applies the name update plus a play-link delta, guarded by a
// compare-and-swap on the row version token.
func (r *PostgresInstrumentRepository) Update(ctx context.Context, instrument *entities.Instrument, expectedVersion string, addPlays, removePlays []int64) (string, error) {
	var newVersion string
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		version := uuid.NewString()
		result, err := tx.ExecContext(ctx, `
			UPDATE instruments
			SET name = $1, row_version = $2
			WHERE id = $3 AND row_version = $4
		`, instrument.Name, version, instrument.ID, expectedVersion)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM instruments WHERE id = $1)`, instrument.ID,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check instrument existence: %w", err)
			}
			if exists {
				return entities.ErrStaleVersion
			}
			return entities.ErrDeletedConcurrently
		}

		for _, musicianID := range addPlays {
			if err := insertPlays(ctx, tx, musicianID, []int64{instrument.ID}); err != nil {
				return err
			}
		}
		for _, musicianID := range removePlays {
			if err := deletePlays(ctx, tx, musicianID, []int64{instrument.ID}); err != nil {
				return err
			}
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

// Delete removes an instrument. The plays and musicians foreign keys
// restrict, so an instrument still in use surfaces a
// ReferentialIntegrityError.
func (r *PostgresInstrumentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM instruments WHERE id = $1`, id)
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

// Exists checks whether an instrument with the given ID exists.
func (r *PostgresInstrumentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM instruments WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check instrument existence: %w", err)
	}
	return exists, nil
}

// BatchCreate inserts multiple instruments in a single transaction.
func (r *PostgresInstrumentRepository) BatchCreate(ctx context.Context, instruments []*entities.Instrument) error {
	if len(instruments) == 0 {
		return nil
	}
	return withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO instruments (name, created_by, row_version)
			VALUES ($1, $2, $3)
			RETURNING id
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare instrument insert: %w", err)
		}
		defer stmt.Close()

		versions := make([]string, len(instruments))
		for i, inst := range instruments {
			versions[i] = uuid.NewString()
			if err := stmt.QueryRowContext(ctx, inst.Name, inst.CreatedBy, versions[i]).Scan(&inst.ID); err != nil {
				return mapError(err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		for i, inst := range instruments {
			inst.RowVersion = versions[i]
		}
		return nil
	})
}
