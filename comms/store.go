package comms

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const transcriptSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id        TEXT PRIMARY KEY,
	role      TEXT NOT NULL,
	sent_from TEXT NOT NULL DEFAULT '',
	send_to   TEXT NOT NULL DEFAULT '[]',
	cause_by  TEXT NOT NULL DEFAULT '',
	content   TEXT NOT NULL,
	metadata  TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);
`

// TranscriptStore persists routed messages in a SQLite database so the
// conversation survives the process and can be served over the API. It is an
// archive of the in-memory History, written by the environment only.
type TranscriptStore struct {
	db *sql.DB
}

// NewTranscriptStore opens (or creates) a SQLite database at dbPath and
// ensures the messages table exists. The caller is responsible for Close.
func NewTranscriptStore(dbPath string) (*TranscriptStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(transcriptSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &TranscriptStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *TranscriptStore) Close() error { return s.db.Close() }

// Append records a routed message. Duplicate IDs are ignored so replaying a
// history into the archive is idempotent.
func (s *TranscriptStore) Append(msg *Message) error {
	sendTo, _ := json.Marshal(msg.SendTo)
	metadata, _ := json.Marshal(msg.Metadata)
	if msg.Metadata == nil {
		metadata = []byte("{}")
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO messages
			(id, role, sent_from, send_to, cause_by, content, metadata, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		msg.ID, string(msg.Role), msg.SentFrom,
		string(sendTo), string(msg.CauseBy), msg.Content, string(metadata), ts,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages in chronological order, newest last.
// limit <= 0 returns everything.
func (s *TranscriptStore) Recent(limit int) ([]*Message, error) {
	q := `SELECT id, role, sent_from, send_to, cause_by, content, metadata, created_at
		FROM messages ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		var role, sendTo, causeBy, metadata string
		if err := rows.Scan(&m.ID, &role, &m.SentFrom, &sendTo, &causeBy, &m.Content, &metadata, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		m.CauseBy = ActionTag(causeBy)
		_ = json.Unmarshal([]byte(sendTo), &m.SendTo)
		_ = json.Unmarshal([]byte(metadata), &m.Metadata)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse to chronological order
	for l, r := 0, len(msgs)-1; l < r; l, r = l+1, r-1 {
		msgs[l], msgs[r] = msgs[r], msgs[l]
	}
	return msgs, nil
}
