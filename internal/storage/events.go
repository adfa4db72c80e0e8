package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tickbot/internal/sched"
	logx "tickbot/pkg/logx"
)

// EventStore implements sched.Store over the shared events table,
// restricted to a single event kind.
type EventStore struct {
	db   *sql.DB
	kind string
	log  logx.Logger
}

const eventColumns = "id, owner_id, target_id, created_at, deadline, payload, recur_days"

func (s *EventStore) Insert(ctx context.Context, ev sched.Event) (int64, error) {
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(kind, owner_id, target_id, created_at, deadline, payload, recur_days)
		 VALUES(?,?,?,?,?,?,?)`,
		s.kind, ev.OwnerID, ev.TargetID, created.Unix(), ev.Deadline.Unix(), ev.Payload, ev.RecurDays,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE kind = ? AND id = ?`, s.kind, id)
	return err
}

func (s *EventStore) DeleteOwned(ctx context.Context, ownerID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE kind = ? AND owner_id = ? AND id = ?`, s.kind, ownerID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *EventStore) DeleteAll(ctx context.Context, ownerID int64) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM events WHERE kind = ? AND owner_id = ?`, s.kind, ownerID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(ids) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM events WHERE kind = ? AND owner_id = ?`, s.kind, ownerID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *EventStore) Earliest(ctx context.Context) (*sched.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE kind = ? ORDER BY deadline, id LIMIT 1`, s.kind)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *EventStore) List(ctx context.Context, ownerID int64) ([]sched.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE kind = ? AND owner_id = ? ORDER BY deadline, id`,
		s.kind, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListByTarget returns every pending event of this kind aimed at one
// delivery target, ascending by deadline. Used for chat-wide listings.
func (s *EventStore) ListByTarget(ctx context.Context, targetID int64) ([]sched.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE kind = ? AND target_id = ? ORDER BY deadline, id`,
		s.kind, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// All returns every pending event of this kind. Used by the janitor.
func (s *EventStore) All(ctx context.Context) ([]sched.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE kind = ? ORDER BY deadline, id`, s.kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// Get returns one event by id or ErrNotFound.
func (s *EventStore) Get(ctx context.Context, id int64) (sched.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE kind = ? AND id = ?`, s.kind, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sched.Event{}, ErrNotFound
	}
	return ev, err
}

// UpdatePayload rewrites the opaque payload of a pending event.
// The deadline is untouched, so no scheduler restart is needed.
func (s *EventStore) UpdatePayload(ctx context.Context, id int64, payload string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET payload = ? WHERE kind = ? AND id = ?`, payload, s.kind, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (sched.Event, error) {
	var ev sched.Event
	var created, deadline int64
	if err := r.Scan(&ev.ID, &ev.OwnerID, &ev.TargetID, &created, &deadline, &ev.Payload, &ev.RecurDays); err != nil {
		return sched.Event{}, err
	}
	ev.CreatedAt = time.Unix(created, 0)
	ev.Deadline = time.Unix(deadline, 0)
	return ev, nil
}

func collectEvents(rows *sql.Rows) ([]sched.Event, error) {
	var out []sched.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
