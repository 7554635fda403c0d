package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// FrameRepository stores the recorded frames of each sign as opaque JSON documents.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Replace swaps all frames of a sign in a single transaction and updates its
// frame count. Returns ErrNotFound if the sign does not exist.
func (r *FrameRepository) Replace(signID string, frames []json.RawMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE signs SET frame_count = ?, updated_at = ? WHERE id = ?`,
		len(frames), time.Now(), signID)
	if err != nil {
		return err
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM sign_frames WHERE sign_id = ?`, signID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO sign_frames (sign_id, sequence, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range frames {
		if _, err := stmt.Exec(signID, i, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get retrieves all frames of a sign in recording order.
func (r *FrameRepository) Get(signID string) ([]json.RawMessage, error) {
	rows, err := r.db.Query(
		`SELECT data FROM sign_frames WHERE sign_id = ? ORDER BY sequence`,
		signID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		frames = append(frames, json.RawMessage(data))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}
