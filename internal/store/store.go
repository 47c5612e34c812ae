// Package store persists repository file selections in a local SQLite
// database so a picker session can be restored later.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"careerkit/internal/errors"

	_ "github.com/mattn/go-sqlite3"
)

// Selection is the saved set of paths for one repository branch
type Selection struct {
	Repository string    `json:"repository"`
	Branch     string    `json:"branch"`
	Paths      []string  `json:"paths"`
	SavedAt    time.Time `json:"savedAt"`
}

// Store wraps the SQLite database
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates the store at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, storeError("creating store directory", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, storeError("opening store", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, storeError("enabling WAL mode", err)
	}

	s := &Store{conn: conn, path: dbPath}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, storeError("running migrations", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var currentVersion int
	if err := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.conn.Exec(m.sql); err != nil {
			return fmt.Errorf("migration v%d: %w", m.version, err)
		}
		if _, err := s.conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS selections (
    repository TEXT NOT NULL,
    branch TEXT NOT NULL,
    paths TEXT NOT NULL,
    saved_at INTEGER NOT NULL,
    PRIMARY KEY (repository, branch)
);
`

// Save replaces the stored selection for the repository branch
func (s *Store) Save(ctx context.Context, sel Selection) error {
	if sel.Paths == nil {
		sel.Paths = []string{}
	}
	if sel.SavedAt.IsZero() {
		sel.SavedAt = time.Now()
	}
	paths, err := json.Marshal(sel.Paths)
	if err != nil {
		return storeError("encoding selection", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO selections (repository, branch, paths, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repository, branch) DO UPDATE SET
			paths = excluded.paths,
			saved_at = excluded.saved_at
	`, sel.Repository, sel.Branch, string(paths), sel.SavedAt.UnixMilli())
	if err != nil {
		return storeError("saving selection", err)
	}
	return nil
}

// Load returns the stored selection; a missing one is an empty selection
func (s *Store) Load(ctx context.Context, repository, branch string) (Selection, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT repository, branch, paths, saved_at FROM selections WHERE repository = ? AND branch = ?",
		repository, branch)

	sel, err := scanSelection(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Selection{Repository: repository, Branch: branch, Paths: []string{}}, nil
	}
	if err != nil {
		return Selection{}, storeError("loading selection", err)
	}
	return sel, nil
}

// Delete removes a stored selection; deleting a missing one is not an error
func (s *Store) Delete(ctx context.Context, repository, branch string) error {
	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM selections WHERE repository = ? AND branch = ?", repository, branch)
	if err != nil {
		return storeError("deleting selection", err)
	}
	return nil
}

// List returns every stored selection, most recent first
func (s *Store) List(ctx context.Context) ([]Selection, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT repository, branch, paths, saved_at FROM selections ORDER BY saved_at DESC, repository, branch")
	if err != nil {
		return nil, storeError("listing selections", err)
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		sel, err := scanSelection(rows)
		if err != nil {
			return nil, storeError("reading selection", err)
		}
		out = append(out, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("listing selections", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSelection(row scanner) (Selection, error) {
	var sel Selection
	var paths string
	var savedAt int64
	if err := row.Scan(&sel.Repository, &sel.Branch, &paths, &savedAt); err != nil {
		return Selection{}, err
	}
	if err := json.Unmarshal([]byte(paths), &sel.Paths); err != nil {
		return Selection{}, fmt.Errorf("decoding paths: %w", err)
	}
	sel.SavedAt = time.UnixMilli(savedAt)
	return sel, nil
}

func storeError(action string, err error) error {
	return errors.NewIOError(errors.ErrCodeStoreFailed, action, err)
}
