package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobpilot/internal/tracker"
	"github.com/jonathan/jobpilot/internal/types"
)

const applicationColumns = `id, company, title, location, url, source, status, resume_path, cover_letter_path,
	ats_score, keywords_matched, keywords_missing, notes,
	date_discovered, date_applied, date_response, date_interview, follow_up_date,
	created_at, updated_at`

// ApplicationStore implements tracker.Store on PostgreSQL
type ApplicationStore struct {
	db  *DB
	now func() time.Time
}

var _ tracker.Store = (*ApplicationStore)(nil)

// OpenApplicationStore connects, migrates and returns a store.
func OpenApplicationStore(ctx context.Context, databaseURL string, opts ...tracker.Option) (*ApplicationStore, error) {
	db, err := Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewApplicationStore(db, opts...), nil
}

// NewApplicationStore wraps an open connection. The schema must already exist.
func NewApplicationStore(db *DB, opts ...tracker.Option) *ApplicationStore {
	o := tracker.BuildOptions(opts...)
	return &ApplicationStore{db: db, now: o.Now}
}

// Close closes the connection pool.
func (s *ApplicationStore) Close() error {
	s.db.Close()
	return nil
}

// Add inserts app and sets its ID.
func (s *ApplicationStore) Add(ctx context.Context, app *types.Application) (int64, error) {
	if err := tracker.PrepareNew(app, s.now()); err != nil {
		return 0, err
	}
	err := s.db.pool.QueryRow(ctx,
		`INSERT INTO applications (company, title, location, url, source, status, resume_path, cover_letter_path,
			ats_score, keywords_matched, keywords_missing, notes,
			date_discovered, date_applied, date_response, date_interview, follow_up_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING id`,
		app.Company, app.Title, app.Location, app.URL, app.Source, string(app.Status), app.ResumePath, app.CoverLetterPath,
		app.ATSScore, app.KeywordsMatched, app.KeywordsMissing, app.Notes,
		app.DateDiscovered, app.DateApplied, app.DateResponse, app.DateInterview, app.FollowUpDate,
		app.CreatedAt, app.UpdatedAt,
	).Scan(&app.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert application: %w", err)
	}
	return app.ID, nil
}

// Get returns one application or tracker.ErrNotFound.
func (s *ApplicationStore) Get(ctx context.Context, id int64) (*types.Application, error) {
	return get(ctx, s.db.pool, id, "")
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func get(ctx context.Context, q rowQuerier, id int64, suffix string) (*types.Application, error) {
	app, err := scanApplication(q.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", tracker.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application %d: %w", id, err)
	}
	return app, nil
}

// List returns applications newest first, optionally filtered by status.
func (s *ApplicationStore) List(ctx context.Context, status types.ApplicationStatus) ([]types.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return s.query(ctx, query, args...)
}

// UpdateStatus changes the status, stamps the matching date and appends the note.
func (s *ApplicationStore) UpdateStatus(ctx context.Context, id int64, status types.ApplicationStatus, note string) (*types.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", tracker.ErrInvalidStatus, status)
	}
	return s.modify(ctx, id, func(app *types.Application) error {
		return tracker.ApplyStatus(app, status, note, s.now())
	})
}

// SetFollowUp schedules a reminder days from now (default 7).
func (s *ApplicationStore) SetFollowUp(ctx context.Context, id int64, days int) (*types.Application, error) {
	return s.modify(ctx, id, func(app *types.Application) error {
		now := s.now().UTC()
		due := tracker.FollowUpDate(now, days)
		app.FollowUpDate = &due
		app.UpdatedAt = now
		return nil
	})
}

// FollowUps returns open applications whose reminder is due.
func (s *ApplicationStore) FollowUps(ctx context.Context, now time.Time) ([]types.Application, error) {
	return s.query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE follow_up_date IS NOT NULL AND follow_up_date <= $1 AND NOT (status = ANY($2))
		 ORDER BY follow_up_date ASC, id ASC`,
		now.UTC(), tracker.ClosedStatuses())
}

// IsDuplicate reports whether an application with the same company and title exists, ignoring case.
func (s *ApplicationStore) IsDuplicate(ctx context.Context, company, title string) (bool, error) {
	var exists bool
	err := s.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE lower(trim(company)) = $1 AND lower(trim(title)) = $2)`,
		strings.ToLower(strings.TrimSpace(company)), strings.ToLower(strings.TrimSpace(title)),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return exists, nil
}

// Stats counts applications per status and averages the positive ATS scores.
func (s *ApplicationStore) Stats(ctx context.Context) (*types.ApplicationStats, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	defer rows.Close()

	byStatus := map[types.ApplicationStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		byStatus[types.ApplicationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg *float64
	if err := s.db.pool.QueryRow(ctx, `SELECT AVG(ats_score) FROM applications WHERE ats_score > 0`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	var mean float64
	if avg != nil {
		mean = *avg
	}
	return tracker.NewStats(byStatus, mean), nil
}

func (s *ApplicationStore) modify(ctx context.Context, id int64, mutate func(*types.Application) error) (*types.Application, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	app, err := get(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	if err := mutate(app); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE applications SET status = $1, notes = $2, date_applied = $3, date_response = $4, date_interview = $5,
			follow_up_date = $6, updated_at = $7
		 WHERE id = $8`,
		string(app.Status), app.Notes, app.DateApplied, app.DateResponse, app.DateInterview,
		app.FollowUpDate, app.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update application %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return app, nil
}

func (s *ApplicationStore) query(ctx context.Context, query string, args ...any) ([]types.Application, error) {
	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	apps := []types.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

func scanApplication(row pgx.Row) (*types.Application, error) {
	var (
		app    types.Application
		status string
	)
	err := row.Scan(&app.ID, &app.Company, &app.Title, &app.Location, &app.URL, &app.Source, &status,
		&app.ResumePath, &app.CoverLetterPath, &app.ATSScore, &app.KeywordsMatched, &app.KeywordsMissing, &app.Notes,
		&app.DateDiscovered, &app.DateApplied, &app.DateResponse, &app.DateInterview, &app.FollowUpDate,
		&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.Status = types.ApplicationStatus(status)
	for _, t := range []*time.Time{app.DateDiscovered, app.DateApplied, app.DateResponse, app.DateInterview, app.FollowUpDate} {
		if t != nil {
			*t = t.UTC()
		}
	}
	app.CreatedAt = app.CreatedAt.UTC()
	app.UpdatedAt = app.UpdatedAt.UTC()
	return &app, nil
}
