package store

import (
	"database/sql"
	"errors"
	"time"
)

// FirstLevel is always unlocked.
const FirstLevel = "1.1"

// LevelProgress is the saved state of one practice level.
type LevelProgress struct {
	Level       string    `json:"level"`
	Completions int       `json:"completions"`
	Completed   bool      `json:"completed"`
	Unlocked    bool      `json:"unlocked"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProgressRepository stores level completion and unlock flags.
type ProgressRepository struct {
	db *sql.DB
}

// Progress returns the progress repository for this store.
func (s *Store) Progress() *ProgressRepository {
	return &ProgressRepository{db: s.db}
}

// Get returns the progress of level. Levels never touched report zero
// progress; FirstLevel is reported unlocked.
func (r *ProgressRepository) Get(level string) (*LevelProgress, error) {
	p := &LevelProgress{Level: level}
	err := r.db.QueryRow(
		`SELECT completions, completed, unlocked, updated_at FROM level_progress WHERE level = ?`,
		level,
	).Scan(&p.Completions, &p.Completed, &p.Unlocked, &p.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if level == FirstLevel {
		p.Unlocked = true
	}
	return p, nil
}

// List returns every level with saved progress.
func (r *ProgressRepository) List() ([]*LevelProgress, error) {
	rows, err := r.db.Query(
		`SELECT level, completions, completed, unlocked, updated_at FROM level_progress ORDER BY level`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []*LevelProgress
	for rows.Next() {
		p := &LevelProgress{}
		if err := rows.Scan(&p.Level, &p.Completions, &p.Completed, &p.Unlocked, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Level == FirstLevel {
			p.Unlocked = true
		}
		levels = append(levels, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return levels, nil
}

// Complete records one completion of level, marking it completed.
func (r *ProgressRepository) Complete(level string) error {
	_, err := r.db.Exec(
		`INSERT INTO level_progress (level, completions, completed, unlocked, updated_at)
		 VALUES (?, 1, 1, 1, ?)
		 ON CONFLICT(level) DO UPDATE SET
			completions = completions + 1,
			completed = 1,
			unlocked = 1,
			updated_at = excluded.updated_at`,
		level, time.Now(),
	)
	return err
}

// Unlock marks level as available.
func (r *ProgressRepository) Unlock(level string) error {
	_, err := r.db.Exec(
		`INSERT INTO level_progress (level, unlocked, updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(level) DO UPDATE SET unlocked = 1, updated_at = excluded.updated_at`,
		level, time.Now(),
	)
	return err
}

// Reset clears all saved progress.
func (r *ProgressRepository) Reset() error {
	_, err := r.db.Exec(`DELETE FROM level_progress`)
	return err
}
