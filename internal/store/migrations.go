package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Signs: one trained template per label
		`CREATE TABLE IF NOT EXISTS signs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL UNIQUE,
			tolerance REAL NOT NULL DEFAULT 4.0,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Normalized landmarks of a trained sign, per hand
		`CREATE TABLE IF NOT EXISTS sign_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			hand_index INTEGER NOT NULL,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		// Raw recorded pose samples used for training
		`CREATE TABLE IF NOT EXISTS sign_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Every decision made during a practice session
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			target TEXT NOT NULL,
			shape TEXT NOT NULL,
			label TEXT NOT NULL,
			confidence REAL NOT NULL,
			latency_ms INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Completion state per practice level
		`CREATE TABLE IF NOT EXISTS level_progress (
			level TEXT PRIMARY KEY,
			completions INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0,
			unlocked INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sign_landmarks_sign_id ON sign_landmarks(sign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sign_samples_sign_id ON sign_samples(sign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_session_id ON attempts(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
