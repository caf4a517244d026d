package plan

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS steps (
	id           TEXT PRIMARY KEY,
	seq          INTEGER NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	owner        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	result       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	completed_at DATETIME
);
`

// SQLiteStore persists plan steps in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the steps table exists. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Append persists a new step at the end of the plan, setting its ID, Seq,
// CreatedAt, and UpdatedAt.
func (s *SQLiteStore) Append(st *Step) (string, error) {
	var maxSeq sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(seq) FROM steps`).Scan(&maxSeq); err != nil {
		return "", fmt.Errorf("next seq: %w", err)
	}
	st.ID = uuid.NewString()
	st.Seq = int(maxSeq.Int64) + 1
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO steps
			(id, seq, title, description, owner, status, result, created_at, updated_at, completed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		st.ID, st.Seq, st.Title, st.Description, st.Owner,
		string(st.Status), st.Result,
		st.CreatedAt, st.UpdatedAt, nullTime(st.CompletedAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert step: %w", err)
	}
	return st.ID, nil
}

// Get retrieves a step by ID.
func (s *SQLiteStore) Get(id string) (*Step, error) {
	row := s.db.QueryRow(`SELECT id, seq, title, description, owner, status, result, created_at, updated_at, completed_at
		FROM steps WHERE id = ?`, id)
	st, err := scanStep(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return st, err
}

// Update saves changes to an existing step, refreshing UpdatedAt.
func (s *SQLiteStore) Update(st *Step) error {
	st.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE steps SET
			title=?, description=?, owner=?, status=?, result=?, updated_at=?, completed_at=?
		WHERE id=?`,
		st.Title, st.Description, st.Owner, string(st.Status), st.Result,
		st.UpdatedAt, nullTime(st.CompletedAt), st.ID,
	)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all steps in plan order.
func (s *SQLiteStore) List() ([]*Step, error) {
	rows, err := s.db.Query(`SELECT id, seq, title, description, owner, status, result, created_at, updated_at, completed_at
		FROM steps ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []*Step
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanStep.
type scanner interface {
	Scan(dest ...any) error
}

func scanStep(s scanner) (*Step, error) {
	var st Step
	var status string
	var completedAt sql.NullTime

	err := s.Scan(
		&st.ID, &st.Seq, &st.Title, &st.Description, &st.Owner,
		&status, &st.Result,
		&st.CreatedAt, &st.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	st.Status = Status(status)
	if completedAt.Valid {
		st.CompletedAt = &completedAt.Time
	}
	return &st, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
