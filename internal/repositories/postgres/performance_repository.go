package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/pkg/paging"
)

// PostgresPerformanceRepository is the PostgreSQL implementation of PerformanceRepository.
type PostgresPerformanceRepository struct {
	db *sql.DB
}

// NewPostgresPerformanceRepository creates a new PostgresPerformanceRepository.
func NewPostgresPerformanceRepository(db *sql.DB) repositories.PerformanceRepository {
	return &PostgresPerformanceRepository{db: db}
}

// Create inserts a performance record.
func (r *PostgresPerformanceRepository) Create(ctx context.Context, performance *entities.Performance) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO performances (musician_id, instrument_id, song_title, fee_paid, performed_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, performance.MusicianID, performance.InstrumentID, performance.SongTitle,
		performance.FeePaid, performance.PerformedOn,
	).Scan(&performance.ID)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// ListByMusician returns all performances by one musician with the
// instrument loaded.
func (r *PostgresPerformanceRepository) ListByMusician(ctx context.Context, musicianID int64) ([]*entities.Performance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.musician_id, p.instrument_id, p.song_title, p.fee_paid, p.performed_on, i.name
		FROM performances p
		JOIN instruments i ON i.id = p.instrument_id
		WHERE p.musician_id = $1
		ORDER BY p.id
	`, musicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performances: %w", err)
	}
	defer rows.Close()

	var performances []*entities.Performance
	for rows.Next() {
		p := &entities.Performance{}
		var instrumentName string
		if err := rows.Scan(&p.ID, &p.MusicianID, &p.InstrumentID,
			&p.SongTitle, &p.FeePaid, &p.PerformedOn, &instrumentName); err != nil {
			return nil, fmt.Errorf("failed to scan performance: %w", err)
		}
		p.Instrument = &entities.Instrument{ID: p.InstrumentID, Name: instrumentName}
		performances = append(performances, p)
	}
	return performances, rows.Err()
}

const summarySelect = `
	SELECT m.id,
	       m.last_name || ', ' || m.first_name ||
	           CASE WHEN m.middle_name <> '' THEN ' ' || upper(left(m.middle_name, 1)) || '.' ELSE '' END,
	       COUNT(p.id), AVG(p.fee_paid), MAX(p.fee_paid), MIN(p.fee_paid)
	FROM musicians m
	JOIN performances p ON p.musician_id = m.id
	GROUP BY m.id, m.first_name, m.middle_name, m.last_name
	ORDER BY m.last_name, m.first_name, m.id
`

func scanSummaries(rows *sql.Rows) ([]*entities.PerformanceSummary, error) {
	var summaries []*entities.PerformanceSummary
	for rows.Next() {
		s := &entities.PerformanceSummary{}
		if err := rows.Scan(&s.MusicianID, &s.FormalName, &s.TotalPerformances,
			&s.AverageFeePaid, &s.HighestFeePaid, &s.LowestFeePaid); err != nil {
			return nil, fmt.Errorf("failed to scan performance summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Summaries returns a page of per-musician aggregates ordered by formal name.
func (r *PostgresPerformanceRepository) Summaries(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.PerformanceSummary], error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT musician_id) FROM performances`,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count performance summaries: %w", err)
	}

	size := paging.NormalizeSize(pageSize)
	index := paging.ClampIndex(pageIndex, total, size)

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("%s LIMIT $1 OFFSET $2", summarySelect),
		size, paging.Offset(index, size))
	if err != nil {
		return nil, fmt.Errorf("failed to query performance summaries: %w", err)
	}
	defer rows.Close()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, err
	}
	page := paging.New(summaries, total, index, size)
	return &page, nil
}

// AllSummaries returns every per-musician aggregate ordered by formal name.
func (r *PostgresPerformanceRepository) AllSummaries(ctx context.Context) ([]*entities.PerformanceSummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance summaries: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}
