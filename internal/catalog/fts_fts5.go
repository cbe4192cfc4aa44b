//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
			name,
			folder,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsClear(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM files_fts`); err != nil {
		return fmt.Errorf("catalog: clear fts: %w", err)
	}
	return nil
}

func ftsInsert(tx *sql.Tx, f FileRow) error {
	_, err := tx.Exec(`INSERT INTO files_fts (name, folder, body) VALUES (?, ?, ?)`,
		f.Name, f.Folder, f.Summary+"\n"+f.Body)
	if err != nil {
		return fmt.Errorf("catalog: insert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching files with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.name, f.folder, f.path,
		       snippet(files_fts, 2, '<b>', '</b>', '...', 32),
		       f.locked
		FROM files_fts
		JOIN files f ON f.name = files_fts.name
		WHERE files_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Name, &r.Folder, &r.Path, &r.Snippet, &r.Locked); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
