package state

import (
	"database/sql"
	"errors"
	"maps"
	"slices"
	"time"
)

// finishedMargin is how close to the end a saved position counts as
// finished.
const finishedMargin = 5 * time.Second

// Position is the saved playback position of a media URL.
type Position struct {
	URL       string
	Position  time.Duration
	Duration  time.Duration // zero when unknown
	UpdatedAt time.Time
}

// Resumable returns true if playback should continue from the saved
// position rather than from the start.
func (p Position) Resumable() bool {
	if p.Position <= 0 {
		return false
	}
	if p.Duration > 0 && p.Position >= p.Duration-finishedMargin {
		return false
	}
	return true
}

func getPosition(db *sql.DB, url string) (*Position, error) {
	row := db.QueryRow(`
		SELECT position_ms, duration_ms, updated_at
		FROM resume_positions WHERE url = ?
	`, url)

	var positionMs, updatedAt int64
	var durationMs sql.NullInt64
	err := row.Scan(&positionMs, &durationMs, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no saved position is valid
	}
	if err != nil {
		return nil, err
	}

	p := Position{
		URL:       url,
		Position:  time.Duration(positionMs) * time.Millisecond,
		UpdatedAt: time.Unix(updatedAt, 0),
	}
	if durationMs.Valid {
		p.Duration = time.Duration(durationMs.Int64) * time.Millisecond
	}
	return &p, nil
}

// savePositions writes all positions in a single transaction.
func savePositions(db *sql.DB, positions map[string]Position) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare(`
		INSERT INTO resume_positions (url, position_ms, duration_ms, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			position_ms = excluded.position_ms,
			duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, url := range slices.Sorted(maps.Keys(positions)) {
		p := positions[url]
		duration := sql.NullInt64{Int64: p.Duration.Milliseconds(), Valid: p.Duration > 0}
		if _, err := stmt.Exec(url, p.Position.Milliseconds(), duration, p.UpdatedAt.Unix()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func clearPosition(db *sql.DB, url string) error {
	_, err := db.Exec(`DELETE FROM resume_positions WHERE url = ?`, url)
	return err
}
