package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/isyarat/internal/detector"
)

// Sign is a trained sign-language template stored in the database.
type Sign struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Tolerance float64   `json:"tolerance"`
	Samples   int       `json:"samples"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignRepository provides CRUD operations for signs.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

const signColumns = `id, label, tolerance, samples, created_at, updated_at`

func scanSign(row interface{ Scan(...any) error }) (*Sign, error) {
	g := &Sign{}
	if err := row.Scan(&g.ID, &g.Label, &g.Tolerance, &g.Samples, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// Create inserts a new sign into the database.
func (r *SignRepository) Create(g *Sign) error {
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO signs (id, label, tolerance, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Label, g.Tolerance, g.Samples, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

// GetByID retrieves a sign by its ID.
func (r *SignRepository) GetByID(id string) (*Sign, error) {
	return scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE id = ?`, id))
}

// GetByLabel retrieves a sign by its label.
func (r *SignRepository) GetByLabel(label string) (*Sign, error) {
	return scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE label = ?`, label))
}

// List retrieves all signs ordered by label.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(`SELECT ` + signColumns + ` FROM signs ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		g, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		signs = append(signs, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signs, nil
}

// Update updates an existing sign in the database.
func (r *SignRepository) Update(g *Sign) error {
	g.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE signs SET label = ?, tolerance = ?, samples = ?, updated_at = ? WHERE id = ?`,
		g.Label, g.Tolerance, g.Samples, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// Delete removes a sign and everything attached to it.
func (r *SignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// SetLandmarks replaces the trained landmarks of a sign.
func (r *SignRepository) SetLandmarks(signID string, hands []detector.HandLandmarks) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM signs WHERE id = ?`, signID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM sign_landmarks WHERE sign_id = ?`, signID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO sign_landmarks (sign_id, hand_index, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for h, hand := range hands {
		for i, p := range hand.Points {
			if _, err := stmt.Exec(signID, h, i, p.X, p.Y, p.Z); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(`UPDATE signs SET updated_at = ? WHERE id = ?`, time.Now(), signID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetLandmarks returns the trained landmarks of a sign, one entry per hand.
// A sign that was never trained has none.
func (r *SignRepository) GetLandmarks(signID string) ([]detector.HandLandmarks, error) {
	rows, err := r.db.Query(
		`SELECT hand_index, landmark_index, x, y, z FROM sign_landmarks
		 WHERE sign_id = ? ORDER BY hand_index, landmark_index`,
		signID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hands []detector.HandLandmarks
	for rows.Next() {
		var h, i int
		var p detector.Point3D
		if err := rows.Scan(&h, &i, &p.X, &p.Y, &p.Z); err != nil {
			return nil, err
		}
		if h < 0 || h >= detector.MaxHands || i < 0 || i >= detector.NumLandmarks {
			continue
		}
		for len(hands) <= h {
			hands = append(hands, detector.HandLandmarks{})
		}
		hands[h].Points[i] = p
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hands, nil
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
