package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrInvalidRange     = errors.New("event range is empty or inverted")
	ErrStoreUnavailable = errors.New("event store unavailable")
)

// Event is one activity row as written by the external collector. The
// pipeline treats events as read-only input and never writes to the store.
type Event struct {
	Type      string
	URL       string
	Title     string
	App       string
	Status    string
	Duration  int
	Timestamp time.Time
}

// Reader reads events from the collector's SQLite database. The database is
// opened per call and closed before the call returns, so no handle outlives
// a pipeline stage.
type Reader struct {
	path string
}

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadEvents returns all events with a start timestamp in [start, end).
// Row order is not guaranteed to callers. An empty or inverted range fails
// with ErrInvalidRange before the store is touched.
func (r *Reader) ReadEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: start=%s end=%s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	if _, err := os.Stat(r.path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite", "file:"+r.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT event_type, url, title, app, status, duration, ts_start
		FROM events
		WHERE ts_start >= ? AND ts_start < ?
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev                     Event
			url, title, app, state sql.NullString
			tsStart                int64
		)
		if err := rows.Scan(&ev.Type, &url, &title, &app, &state, &ev.Duration, &tsStart); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.URL = url.String
		ev.Title = title.String
		ev.App = app.String
		ev.Status = state.String
		ev.Timestamp = time.Unix(tsStart, 0).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}

	return events, nil
}
