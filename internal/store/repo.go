package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a journal entry.
type EventKind string

const (
	EventCheckIn          EventKind = "checkin"
	EventLessonCompleted  EventKind = "lesson_completed"
	EventProblemCompleted EventKind = "problem_completed"
	EventBadgeUnlocked    EventKind = "badge_unlocked"
	EventSettingsChanged  EventKind = "settings_changed"
	EventAdminUnlocked    EventKind = "admin_unlocked"
	EventReset            EventKind = "reset"
)

// Event is one append-only journal entry.
type Event struct {
	ID        string    `json:"id"`
	Sequence  int64     `json:"sequence"`
	Kind      EventKind `json:"kind"`
	Subject   string    `json:"subject,omitempty"` // lesson, problem or badge id
	XP        int       `json:"xp,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
	Kind   EventKind // empty = all kinds
}

// EventRepo provides append and query access to the activity journal.
type EventRepo interface {
	// Append assigns ID and Sequence and records the event.
	Append(ctx context.Context, ev Event) (Event, error)

	// Query returns matching events, newest first.
	Query(ctx context.Context, opts QueryOpts) ([]Event, error)

	// Clear removes every event.
	Clear(ctx context.Context) error
}

type sqliteEventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *sqliteEventRepo) Append(ctx context.Context, ev Event) (Event, error) {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return Event{}, err
	}
	ev.ID = uuid.NewString()
	ev.Sequence = seq
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO progress_events (id, sequence, kind, subject, xp, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Sequence, string(ev.Kind), ev.Subject, ev.XP, ev.Timestamp.UnixNano(),
	)
	if err != nil {
		return Event{}, fmt.Errorf("append event: %w", err)
	}
	return ev, nil
}

func (r *sqliteEventRepo) Query(ctx context.Context, opts QueryOpts) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if opts.After > 0 {
		where = append(where, "sequence > ?")
		args = append(args, opts.After)
	}
	if opts.Before > 0 {
		where = append(where, "sequence < ?")
		args = append(args, opts.Before)
	}
	if !opts.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, opts.From.UnixNano())
	}
	if !opts.To.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, opts.To.UnixNano())
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}

	q := `SELECT id, sequence, kind, subject, xp, timestamp FROM progress_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev   Event
			kind string
			ts   int64
		)
		if err := rows.Scan(&ev.ID, &ev.Sequence, &kind, &ev.Subject, &ev.XP, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = EventKind(kind)
		ev.Timestamp = time.Unix(0, ts)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (r *sqliteEventRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM progress_events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// MemoryEventRepo is an in-process EventRepo.
type MemoryEventRepo struct {
	mu     sync.Mutex
	events []Event
	next   int64
}

// NewMemoryEventRepo returns an empty journal.
func NewMemoryEventRepo() *MemoryEventRepo {
	return &MemoryEventRepo{next: 1}
}

func (r *MemoryEventRepo) Append(_ context.Context, ev Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = uuid.NewString()
	ev.Sequence = r.next
	r.next++
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	r.events = append(r.events, ev)
	return ev, nil
}

func (r *MemoryEventRepo) Query(_ context.Context, opts QueryOpts) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, ev := range slices.Backward(r.events) {
		if !opts.matches(ev) {
			continue
		}
		out = append(out, ev)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryEventRepo) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	return nil
}

func (o QueryOpts) matches(ev Event) bool {
	switch {
	case o.After > 0 && ev.Sequence <= o.After:
		return false
	case o.Before > 0 && ev.Sequence >= o.Before:
		return false
	case !o.From.IsZero() && ev.Timestamp.Before(o.From):
		return false
	case !o.To.IsZero() && ev.Timestamp.After(o.To):
		return false
	case o.Kind != "" && ev.Kind != o.Kind:
		return false
	}
	return true
}
