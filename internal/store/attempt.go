package store

import (
	"database/sql"
	"time"
)

// Attempt is one recorded practice decision.
type Attempt struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Target     string    `json:"target"`
	Shape      string    `json:"shape"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	LatencyMs  int64     `json:"latency_ms"`
	Correct    bool      `json:"correct"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttemptStats summarizes the attempts of a session.
type AttemptStats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// AttemptRepository records practice attempts.
type AttemptRepository struct {
	db *sql.DB
}

// Attempts returns the attempt repository for this store.
func (s *Store) Attempts() *AttemptRepository {
	return &AttemptRepository{db: s.db}
}

// Create inserts an attempt.
func (r *AttemptRepository) Create(a *Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO attempts (id, session_id, target, shape, label, confidence, latency_ms, correct, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.Target, a.Shape, a.Label, a.Confidence, a.LatencyMs, a.Correct, a.Reason, a.CreatedAt,
	)
	return err
}

// ListBySession returns the attempts of a session in the order they were made.
func (r *AttemptRepository) ListBySession(sessionID string) ([]*Attempt, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, target, shape, label, confidence, latency_ms, correct, reason, created_at
		 FROM attempts WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a := &Attempt{}
		err := rows.Scan(&a.ID, &a.SessionID, &a.Target, &a.Shape, &a.Label,
			&a.Confidence, &a.LatencyMs, &a.Correct, &a.Reason, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attempts, nil
}

// Stats counts total and correct attempts of a session.
func (r *AttemptRepository) Stats(sessionID string) (AttemptStats, error) {
	var st AttemptStats
	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(correct), 0) FROM attempts WHERE session_id = ?`,
		sessionID,
	).Scan(&st.Total, &st.Correct)
	return st, err
}
