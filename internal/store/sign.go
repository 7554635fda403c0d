package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Sign represents a recorded sign stored in the database.
type Sign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
	FrameCount  int       `json:"frame_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats summarizes the sign library.
type Stats struct {
	Total          int     `json:"total"`
	MeanConfidence float64 `json:"mean_confidence"`
	RecentlyAdded  int     `json:"recently_added"`
}

// SignRepository provides CRUD operations for signs.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

const signColumns = `id, name, description, confidence, frame_count, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSign(row scanner) (*Sign, error) {
	sg := &Sign{}
	err := row.Scan(&sg.ID, &sg.Name, &sg.Description, &sg.Confidence, &sg.FrameCount, &sg.CreatedAt, &sg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sg, nil
}

// Create inserts a new sign into the database.
func (r *SignRepository) Create(sg *Sign) error {
	now := time.Now()
	sg.CreatedAt = now
	sg.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO signs (`+signColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.Name, sg.Description, sg.Confidence, sg.FrameCount, sg.CreatedAt, sg.UpdatedAt,
	)
	return err
}

// GetByID retrieves a sign by its ID.
func (r *SignRepository) GetByID(id string) (*Sign, error) {
	return scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE id = ?`, id))
}

// GetByName retrieves a sign by its name.
func (r *SignRepository) GetByName(name string) (*Sign, error) {
	return scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE name = ?`, name))
}

// List retrieves all signs, newest first.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(`SELECT ` + signColumns + ` FROM signs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sg, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		signs = append(signs, sg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signs, nil
}

// Update updates the name, description and confidence of an existing sign.
func (r *SignRepository) Update(sg *Sign) error {
	sg.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE signs SET name = ?, description = ?, confidence = ?, updated_at = ?
		 WHERE id = ?`,
		sg.Name, sg.Description, sg.Confidence, sg.UpdatedAt, sg.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes a sign and its frames from the database by its ID.
func (r *SignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Stats returns library totals. RecentlyAdded counts signs created at or after since.
func (r *SignRepository) Stats(since time.Time) (*Stats, error) {
	rows, err := r.db.Query(`SELECT confidence, created_at FROM signs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &Stats{}
	var sum float64
	for rows.Next() {
		var conf float64
		var created time.Time
		if err := rows.Scan(&conf, &created); err != nil {
			return nil, err
		}
		st.Total++
		sum += conf
		if !created.Before(since) {
			st.RecentlyAdded++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if st.Total > 0 {
		st.MeanConfidence = sum / float64(st.Total)
	}
	return st, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
