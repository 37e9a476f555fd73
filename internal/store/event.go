package store

import (
	"database/sql"
	"time"
)

// Event is one stable gesture change recorded by the driver.
type Event struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Role       string    `json:"role"`
	Gesture    string    `json:"gesture"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	Frame      uint64    `json:"frame"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventRepository records and lists gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts e and sets its ID. A zero CreatedAt is set to now.
func (r *EventRepository) Record(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Action == "" {
		e.Action = "none"
	}

	result, err := r.db.Exec(
		`INSERT INTO gesture_events (run_id, role, gesture, action, confidence, frame, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Role, e.Gesture, e.Action, e.Confidence, int64(e.Frame), e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id

	return nil
}

// Recent returns up to limit events, newest first.
func (r *EventRepository) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, run_id, role, gesture, action, confidence, frame, created_at
		 FROM gesture_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var frame int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Role, &e.Gesture, &e.Action, &e.Confidence, &frame, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Frame = uint64(frame)
		events = append(events, e)
	}

	return events, rows.Err()
}

// Prune deletes all but the newest keep events and returns how many were removed.
func (r *EventRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM gesture_events WHERE id NOT IN (
			SELECT id FROM gesture_events ORDER BY id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
