// Package history keeps a SQLite log of solved equations.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/computor/core/computor"
	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/format"
	"github.com/FocuswithJustin/computor/core/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	input        TEXT NOT NULL,
	reduced      TEXT NOT NULL,
	degree       INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	solution_set TEXT NOT NULL,
	solutions    TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_fingerprint ON history(fingerprint);
`

const columns = `id, input, reduced, degree, kind, solution_set, solutions, fingerprint, created_at`

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 20

// Entry is one recorded equation.
type Entry struct {
	ID          string                     `json:"id"`
	Input       string                     `json:"input"`
	Reduced     string                     `json:"reduced"`
	Degree      int                        `json:"degree"`
	Kind        string                     `json:"kind"`
	SolutionSet string                     `json:"solution_set"`
	Solutions   []computor.SolutionSummary `json:"solutions"`
	Fingerprint string                     `json:"fingerprint"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// Store is a history database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path. ":memory:" gives a
// private in-memory store.
func Open(path string) (*Store, error) {
	if !sqlite.IsMemory(path) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, cerrors.NewIO("create", dir, err)
			}
		}
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, cerrors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, cerrors.Wrapf(err, "history: create schema in %s", path)
	}
	return &Store{db: db, now: time.Now}, nil
}

// OpenReadOnly opens an existing history database for queries only. A
// database that does not exist yet is a NotFoundError.
func OpenReadOnly(path string) (*Store, error) {
	if sqlite.IsMemory(path) {
		return Open(path)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cerrors.NewNotFound("history database", path)
		}
		return nil, cerrors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, cerrors.NewIO("open", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores r and returns the new entry.
func (s *Store) Record(ctx context.Context, r *computor.Result) (Entry, error) {
	sum := r.Summarize(format.Options{})
	e := Entry{
		ID:          uuid.NewString(),
		Input:       sum.Input,
		Reduced:     sum.Reduced,
		Degree:      sum.Degree,
		Kind:        sum.Kind,
		SolutionSet: sum.SolutionSet,
		Solutions:   sum.Solutions,
		Fingerprint: sum.Fingerprint,
		CreatedAt:   s.now().UTC(),
	}
	if e.Solutions == nil {
		e.Solutions = []computor.SolutionSummary{}
	}

	solutions, err := json.Marshal(e.Solutions)
	if err != nil {
		return Entry{}, fmt.Errorf("history: encode solutions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Input, e.Reduced, e.Degree, e.Kind, e.SolutionSet,
		string(solutions), e.Fingerprint, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("history: insert: %w", err)
	}
	return e, nil
}

// Get returns the entry with the given id, or a *errors.NotFoundError.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM history WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, cerrors.NewNotFound("history entry", id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	return e, nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.query(ctx, `SELECT `+columns+` FROM history ORDER BY seq DESC LIMIT ?`, limit)
}

// FindByFingerprint returns every entry whose reduced polynomial has the
// given fingerprint, newest first.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]Entry, error) {
	return s.query(ctx, `SELECT `+columns+` FROM history WHERE fingerprint = ? ORDER BY seq DESC`, fingerprint)
}

// Delete removes the entry with the given id, or returns a
// *errors.NotFoundError.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("history: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: delete %s: %w", id, err)
	}
	if n == 0 {
		return cerrors.NewNotFound("history entry", id)
	}
	return nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e         Entry
		solutions string
		created   string
	)
	err := sc.Scan(&e.ID, &e.Input, &e.Reduced, &e.Degree, &e.Kind, &e.SolutionSet,
		&solutions, &e.Fingerprint, &created)
	if err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(solutions), &e.Solutions); err != nil {
		return Entry{}, fmt.Errorf("decode solutions: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Entry{}, fmt.Errorf("decode created_at: %w", err)
	}
	return e, nil
}
