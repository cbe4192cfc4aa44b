package catalog

import (
	"fmt"
	"time"
)

// CycleRow is one pipeline cycle in the history table.
type CycleRow struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Outcome      string    `json:"outcome"`
	Scanned      int       `json:"scanned"`
	Embedded     int       `json:"embedded"`
	Clusters     int       `json:"clusters"`
	Moved        int       `json:"moved"`
	MoveFailures int       `json:"move_failures"`
	Error        string    `json:"error,omitempty"`
}

// FileRow is one file placed by the most recent completed cycle. Locked files
// are stored without summary or body.
type FileRow struct {
	Name      string
	Folder    string
	Path      string
	Summary   string
	Body      string
	Locked    bool
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Name    string `json:"name"`
	Folder  string `json:"folder"`
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
	Locked  bool   `json:"locked"`
}

// RecordCycle stores a finished cycle.
func (db *DB) RecordCycle(c CycleRow) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO cycles
			(id, started_at, finished_at, outcome, scanned, embedded, clusters, moved, move_failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.StartedAt.UTC(), c.FinishedAt.UTC(), c.Outcome,
		c.Scanned, c.Embedded, c.Clusters, c.Moved, c.MoveFailures, c.Error)
	if err != nil {
		return fmt.Errorf("catalog: record cycle: %w", err)
	}
	return nil
}

// ListCycles returns the most recent cycles, newest first.
func (db *DB) ListCycles(limit int) ([]CycleRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, outcome, scanned, embedded, clusters, moved, move_failures, error
		FROM cycles
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRow
	for rows.Next() {
		var c CycleRow
		if err := rows.Scan(&c.ID, &c.StartedAt, &c.FinishedAt, &c.Outcome,
			&c.Scanned, &c.Embedded, &c.Clusters, &c.Moved, &c.MoveFailures, &c.Error); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceFiles swaps the file catalog for the given rows in one transaction.
func (db *DB) ReplaceFiles(files []FileRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM files`); err != nil {
		return fmt.Errorf("catalog: clear files: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO files (name, folder, path, summary, body, locked, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("catalog: prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if f.Locked {
			f.Summary, f.Body = "", ""
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = time.Now()
		}
		if _, err := stmt.Exec(f.Name, f.Folder, f.Path, f.Summary, f.Body, f.Locked, f.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("catalog: insert file: %w", err)
		}
		if err := ftsInsert(tx, f); err != nil {
			return err
		}
	}
	return tx.Commit()
}
