// Package tracker records job applications and their lifecycle.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jonathan/jobpilot/internal/types"
)

// DefaultFollowUpDays is used when SetFollowUp is called with days <= 0
const DefaultFollowUpDays = 7

var (
	// ErrNotFound is returned for an unknown application id
	ErrNotFound = errors.New("application not found")

	// ErrInvalidStatus is returned when a status is not one of types.ApplicationStatuses
	ErrInvalidStatus = errors.New("invalid application status")
)

// Store persists applications. SQLiteStore and db.ApplicationStore implement it.
type Store interface {
	Add(ctx context.Context, app *types.Application) (int64, error)
	Get(ctx context.Context, id int64) (*types.Application, error)
	// List returns applications newest first. An empty status lists all.
	List(ctx context.Context, status types.ApplicationStatus) ([]types.Application, error)
	UpdateStatus(ctx context.Context, id int64, status types.ApplicationStatus, note string) (*types.Application, error)
	SetFollowUp(ctx context.Context, id int64, days int) (*types.Application, error)
	// FollowUps returns open applications whose follow-up date is at or before now.
	FollowUps(ctx context.Context, now time.Time) ([]types.Application, error)
	IsDuplicate(ctx context.Context, company, title string) (bool, error)
	Stats(ctx context.Context) (*types.ApplicationStats, error)
	Close() error
}

// Options holds settings shared by the store implementations
type Options struct {
	Now func() time.Time
}

// Option configures a store
type Option func(*Options)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PrepareNew fills defaults on an application about to be inserted: status,
// discovery date, timestamps and non-nil keyword lists. Times are stored in UTC.
func PrepareNew(app *types.Application, now time.Time) error {
	if app == nil {
		return errors.New("application is nil")
	}
	if strings.TrimSpace(app.Company) == "" && strings.TrimSpace(app.Title) == "" {
		return errors.New("application needs a company or a title")
	}
	if app.Status == "" {
		app.Status = types.StatusDiscovered
	}
	if !app.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, app.Status)
	}
	now = now.UTC()
	if app.DateDiscovered == nil {
		app.DateDiscovered = &now
	} else {
		d := app.DateDiscovered.UTC()
		app.DateDiscovered = &d
	}
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.KeywordsMatched == nil {
		app.KeywordsMatched = []string{}
	}
	if app.KeywordsMissing == nil {
		app.KeywordsMissing = []string{}
	}
	return nil
}

// ApplyStatus moves app to status at now. Applied, response and interview stamp their date
// field. A non-empty note is appended on its own line as "[YYYY-MM-DD] note".
func ApplyStatus(app *types.Application, status types.ApplicationStatus, note string, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	now = now.UTC()
	app.Status = status
	app.UpdatedAt = now

	switch status {
	case types.StatusApplied:
		app.DateApplied = &now
	case types.StatusResponse:
		app.DateResponse = &now
	case types.StatusInterview:
		app.DateInterview = &now
	}

	if note = strings.TrimSpace(note); note != "" {
		app.Notes = strings.TrimSpace(fmt.Sprintf("%s\n[%s] %s", app.Notes, now.Format("2006-01-02"), note))
	}
	return nil
}

// FollowUpDate returns the reminder date days after now, defaulting to a week.
func FollowUpDate(now time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultFollowUpDays
	}
	return now.UTC().AddDate(0, 0, days)
}

// ClosedStatuses are excluded from follow-up reminders.
func ClosedStatuses() []string {
	var out []string
	for _, s := range types.ApplicationStatuses {
		if s.Closed() {
			out = append(out, string(s))
		}
	}
	return out
}

// roundScore keeps two decimals, matching what the dashboard shows.
func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

// NewStats builds stats from per-status counts and the average of positive scores.
func NewStats(byStatus map[types.ApplicationStatus]int, avg float64) *types.ApplicationStats {
	stats := &types.ApplicationStats{ByStatus: byStatus, AvgATSScore: roundScore(avg)}
	if stats.ByStatus == nil {
		stats.ByStatus = map[types.ApplicationStatus]int{}
	}
	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	return stats
}
