package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jonathan/jobpilot/internal/types"
)

const applicationColumns = `id, company, title, location, url, source, status, resume_path, cover_letter_path,
	ats_score, keywords_matched, keywords_missing, notes,
	date_discovered, date_applied, date_response, date_interview, follow_up_date,
	created_at, updated_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens dsn (a file path or ":memory:") and runs migrations.
func NewSQLiteStore(dsn string, opts ...Option) (*SQLiteStore, error) {
	o := BuildOptions(opts...)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a separate database
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db, now: o.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS applications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'discovered',
			resume_path TEXT NOT NULL DEFAULT '',
			cover_letter_path TEXT NOT NULL DEFAULT '',
			ats_score REAL NOT NULL DEFAULT 0,
			keywords_matched TEXT NOT NULL DEFAULT '[]',
			keywords_missing TEXT NOT NULL DEFAULT '[]',
			notes TEXT NOT NULL DEFAULT '',
			date_discovered DATETIME,
			date_applied DATETIME,
			date_response DATETIME,
			date_interview DATETIME,
			follow_up_date DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_created ON applications(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_follow_up ON applications(follow_up_date)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Add inserts app, sets its ID and timestamps, and returns the new id.
func (s *SQLiteStore) Add(ctx context.Context, app *types.Application) (int64, error) {
	if err := PrepareNew(app, s.now()); err != nil {
		return 0, err
	}
	matched, missing, err := encodeKeywords(app)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (company, title, location, url, source, status, resume_path, cover_letter_path,
			ats_score, keywords_matched, keywords_missing, notes,
			date_discovered, date_applied, date_response, date_interview, follow_up_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.Company, app.Title, app.Location, app.URL, app.Source, string(app.Status), app.ResumePath, app.CoverLetterPath,
		app.ATSScore, matched, missing, app.Notes,
		nullTime(app.DateDiscovered), nullTime(app.DateApplied), nullTime(app.DateResponse),
		nullTime(app.DateInterview), nullTime(app.FollowUpDate), app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read application id: %w", err)
	}
	app.ID = id
	return id, nil
}

// Get returns one application or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*types.Application, error) {
	return s.get(ctx, s.db, id)
}

func (s *SQLiteStore) get(ctx context.Context, q querier, id int64) (*types.Application, error) {
	row := q.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application %d: %w", id, err)
	}
	return app, nil
}

// List returns applications newest first, optionally filtered by status.
func (s *SQLiteStore) List(ctx context.Context, status types.ApplicationStatus) ([]types.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return s.query(ctx, query, args...)
}

// UpdateStatus changes the status, stamps the matching date and appends the note.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status types.ApplicationStatus, note string) (*types.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.modify(ctx, id, func(app *types.Application) error {
		return ApplyStatus(app, status, note, s.now())
	})
}

// SetFollowUp schedules a reminder days from now (default 7).
func (s *SQLiteStore) SetFollowUp(ctx context.Context, id int64, days int) (*types.Application, error) {
	return s.modify(ctx, id, func(app *types.Application) error {
		now := s.now().UTC()
		due := FollowUpDate(now, days)
		app.FollowUpDate = &due
		app.UpdatedAt = now
		return nil
	})
}

// FollowUps returns open applications whose reminder is due.
func (s *SQLiteStore) FollowUps(ctx context.Context, now time.Time) ([]types.Application, error) {
	closed := ClosedStatuses()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(closed)), ", ")
	args := []any{now.UTC()}
	for _, c := range closed {
		args = append(args, c)
	}
	return s.query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE follow_up_date IS NOT NULL AND follow_up_date <= ? AND status NOT IN (`+placeholders+`)
		 ORDER BY follow_up_date ASC, id ASC`, args...)
}

// IsDuplicate reports whether an application with the same company and title exists,
// ignoring case and surrounding space.
func (s *SQLiteStore) IsDuplicate(ctx context.Context, company, title string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE lower(trim(company)) = ? AND lower(trim(title)) = ?`,
		strings.ToLower(strings.TrimSpace(company)), strings.ToLower(strings.TrimSpace(title))).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return n > 0, nil
}

// Stats counts applications per status and averages the positive ATS scores.
func (s *SQLiteStore) Stats(ctx context.Context) (*types.ApplicationStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
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
			return nil, err
		}
		byStatus[types.ApplicationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(ats_score) FROM applications WHERE ats_score > 0`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	return NewStats(byStatus, avg.Float64), nil
}

// modify loads, mutates and writes back an application inside one transaction.
func (s *SQLiteStore) modify(ctx context.Context, id int64, mutate func(*types.Application) error) (*types.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	app, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(app); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE applications SET status = ?, notes = ?, date_applied = ?, date_response = ?, date_interview = ?,
			follow_up_date = ?, updated_at = ?
		 WHERE id = ?`,
		string(app.Status), app.Notes, nullTime(app.DateApplied), nullTime(app.DateResponse), nullTime(app.DateInterview),
		nullTime(app.FollowUpDate), app.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update application %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return app, nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]types.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	apps := []types.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(row scanner) (*types.Application, error) {
	var (
		app                           types.Application
		status, matched, missing      string
		discovered, applied, response sql.NullTime
		interview, followUp           sql.NullTime
	)
	err := row.Scan(&app.ID, &app.Company, &app.Title, &app.Location, &app.URL, &app.Source, &status,
		&app.ResumePath, &app.CoverLetterPath, &app.ATSScore, &matched, &missing, &app.Notes,
		&discovered, &applied, &response, &interview, &followUp, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.Status = types.ApplicationStatus(status)
	if err := json.Unmarshal([]byte(matched), &app.KeywordsMatched); err != nil {
		return nil, fmt.Errorf("application %d: bad keywords_matched: %w", app.ID, err)
	}
	if err := json.Unmarshal([]byte(missing), &app.KeywordsMissing); err != nil {
		return nil, fmt.Errorf("application %d: bad keywords_missing: %w", app.ID, err)
	}
	app.DateDiscovered = timePtr(discovered)
	app.DateApplied = timePtr(applied)
	app.DateResponse = timePtr(response)
	app.DateInterview = timePtr(interview)
	app.FollowUpDate = timePtr(followUp)
	app.CreatedAt = app.CreatedAt.UTC()
	app.UpdatedAt = app.UpdatedAt.UTC()
	return &app, nil
}

func encodeKeywords(app *types.Application) (string, string, error) {
	matched, err := json.Marshal(app.KeywordsMatched)
	if err != nil {
		return "", "", err
	}
	missing, err := json.Marshal(app.KeywordsMissing)
	if err != nil {
		return "", "", err
	}
	return string(matched), string(missing), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
