// Package session holds suggestion bundles between the suggest and finalize steps of a
// tailoring run.
//
// Expiry is evaluated lazily whenever the store is touched; nothing runs in the background.
// Memory is therefore bounded by the number of suggestion requests made within one TTL window,
// which is fine for a single operator but needs a sweeper or an external cache before the
// service is shared between many users.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/jobpilot/internal/types"
)

// DefaultTTL is how long a suggestion bundle stays available for finalizing.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned for session ids that never existed, have expired, or were already taken.
var ErrNotFound = errors.New("session not found")

// Observer receives store events, typically to feed metrics. Implementations must not call
// back into the store.
type Observer interface {
	SessionStored()
	SessionTaken()
	SessionMissed()
	SessionsEvicted(n int)
	SessionsActive(n int)
}

type record struct {
	bundle    *types.SuggestionBundle
	createdAt time.Time
}

// Store is an in-memory, TTL-bounded map from session id to suggestion bundle. It is safe for
// concurrent use. Bundles are copied on the way in and on the way out.
type Store struct {
	mu       sync.Mutex
	records  map[string]record
	ttl      time.Duration
	now      func() time.Time
	newID    func(job types.JobSnapshot, at time.Time) string
	observer Observer
}

// Option configures a Store
type Option func(*Store)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces NewID.
func WithIDGenerator(gen func(job types.JobSnapshot, at time.Time) string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithObserver registers an observer for store events.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]record),
		ttl:     DefaultTTL,
		now:     time.Now,
		newID:   NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put stores a copy of bundle and returns a new session id for it.
func (s *Store) Put(bundle *types.SuggestionBundle) (string, error) {
	if bundle == nil {
		return "", fmt.Errorf("session: cannot store a nil bundle")
	}
	stored := bundle.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpiredLocked(now)

	id := s.newID(stored.Job, now)
	for attempt := 0; ; attempt++ {
		if _, taken := s.records[id]; !taken {
			break
		}
		if attempt >= 3 {
			return "", fmt.Errorf("session: could not allocate a unique id")
		}
		id = s.newID(stored.Job, now)
	}

	s.records[id] = record{bundle: stored, createdAt: now}
	s.notify(func(o Observer) {
		o.SessionStored()
		o.SessionsActive(len(s.records))
	})
	return id, nil
}

// Get returns a copy of the bundle stored under id without removing it.
func (s *Store) Get(id string) (*types.SuggestionBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked(s.now())

	rec, ok := s.records[id]
	if !ok {
		s.notify(func(o Observer) { o.SessionMissed() })
		return nil, ErrNotFound
	}
	return rec.bundle.Clone(), nil
}

// Take removes the session and returns its bundle. For any id at most one call succeeds.
func (s *Store) Take(id string) (*types.SuggestionBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked(s.now())

	rec, ok := s.records[id]
	if !ok {
		s.notify(func(o Observer) { o.SessionMissed() })
		return nil, ErrNotFound
	}
	delete(s.records, id)

	s.notify(func(o Observer) {
		o.SessionTaken()
		o.SessionsActive(len(s.records))
	})
	return rec.bundle, nil
}

// ExpiresAt returns when the session stored under id stops being available, measured from
// the time the store recorded it.
func (s *Store) ExpiresAt(id string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked(s.now())

	rec, ok := s.records[id]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return rec.createdAt.Add(s.ttl), nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked(s.now())
	return len(s.records)
}

// evictExpiredLocked drops every record whose age is at least the TTL. Callers hold s.mu.
func (s *Store) evictExpiredLocked(now time.Time) {
	evicted := 0
	for id, rec := range s.records {
		if now.Sub(rec.createdAt) >= s.ttl {
			delete(s.records, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.notify(func(o Observer) {
			o.SessionsEvicted(evicted)
			o.SessionsActive(len(s.records))
		})
	}
}

func (s *Store) notify(fn func(Observer)) {
	if s.observer != nil {
		fn(s.observer)
	}
}

// NewID builds a session id from the creation time, a fingerprint of the job and a random
// component, e.g. "session_20250101_120000_3fa9c1e2b7d4_9b2f0c1d8e7a".
func NewID(job types.JobSnapshot, at time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%s_%s_%s", at.UTC().Format("20060102_150405"), Fingerprint(job)[:12], random[:12])
}

// Fingerprint returns the hex sha256 of the job snapshot's JSON encoding.
func Fingerprint(job types.JobSnapshot) string {
	data, err := json.Marshal(job)
	if err != nil {
		data = []byte(job.Company + "\x00" + job.Title)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
