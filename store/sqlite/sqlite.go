// Package sqlite implements store.Store using SQLite.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cortex-ai/cortex/model"
	"github.com/cortex-ai/cortex/store"
)

// schemaVersion is the current schema. Version 1 held only chat
// messages; version 2 added containers. Upgrading creates the missing
// collection without touching existing data.
const schemaVersion = 2

// Store persists chat messages and containers in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at the given path and runs
// migrations. Opening is idempotent: re-running migrations against an
// up-to-date database is a no-op.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, unavailable("setting WAL mode", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return unavailable("reading schema version", err)
	}

	if version < 1 {
		_, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS chat_messages (
				id            TEXT PRIMARY KEY,
				text          TEXT NOT NULL DEFAULT '',
				sender        TEXT NOT NULL,
				suggestions   TEXT NOT NULL DEFAULT '[]',
				created_at_ms INTEGER NOT NULL,
				created_at    DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_chat_messages_created_at_ms
				ON chat_messages(created_at_ms);
		`)
		if err != nil {
			return unavailable("creating chat_messages", err)
		}
	}

	if version < 2 {
		_, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS containers (
				id               TEXT PRIMARY KEY,
				name             TEXT NOT NULL,
				operator         TEXT NOT NULL DEFAULT '',
				prompt           TEXT NOT NULL DEFAULT '',
				chosen_templates TEXT NOT NULL DEFAULT '{}',
				status           TEXT NOT NULL,
				created_at       DATETIME NOT NULL,
				history          TEXT NOT NULL DEFAULT '[]',
				files            TEXT NOT NULL DEFAULT '{}',
				terminal_logs    TEXT NOT NULL DEFAULT '[]'
			);
		`)
		if err != nil {
			return unavailable("creating containers", err)
		}
	}

	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return unavailable("updating schema version", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Chat messages ---

// AddChatMessage inserts a new message. Insert-only semantics: an
// existing id fails with store.ErrDuplicateKey.
func (s *Store) AddChatMessage(msg *model.ChatMessage) error {
	suggestions, err := json.Marshal(emptyIfNil(msg.Suggestions))
	if err != nil {
		return fmt.Errorf("encoding suggestions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO chat_messages (id, text, sender, suggestions, created_at_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Text, msg.Sender, string(suggestions),
		msg.CreatedAt.UnixMilli(), msg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("chat message %s: %w", msg.ID, store.ErrDuplicateKey)
		}
		return unavailable("inserting chat message", err)
	}
	return nil
}

// UpsertChatMessage inserts or fully replaces a message by id.
func (s *Store) UpsertChatMessage(msg *model.ChatMessage) error {
	suggestions, err := json.Marshal(emptyIfNil(msg.Suggestions))
	if err != nil {
		return fmt.Errorf("encoding suggestions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO chat_messages (id, text, sender, suggestions, created_at_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			sender = excluded.sender,
			suggestions = excluded.suggestions,
			created_at_ms = excluded.created_at_ms,
			created_at = excluded.created_at`,
		msg.ID, msg.Text, msg.Sender, string(suggestions),
		msg.CreatedAt.UnixMilli(), msg.CreatedAt,
	)
	if err != nil {
		return unavailable("upserting chat message", err)
	}
	return nil
}

// ListChatMessages returns all messages ascending by creation time.
// Same-millisecond messages keep their insertion order.
func (s *Store) ListChatMessages() ([]*model.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, text, sender, suggestions, created_at
		 FROM chat_messages ORDER BY created_at_ms ASC, rowid ASC`,
	)
	if err != nil {
		return nil, unavailable("listing chat messages", err)
	}
	defer rows.Close()

	var msgs []*model.ChatMessage
	for rows.Next() {
		m := &model.ChatMessage{}
		var suggestions string
		if err := rows.Scan(&m.ID, &m.Text, &m.Sender, &suggestions, &m.CreatedAt); err != nil {
			return nil, unavailable("scanning chat message", err)
		}
		if err := json.Unmarshal([]byte(suggestions), &m.Suggestions); err != nil {
			return nil, fmt.Errorf("decoding suggestions for %s: %w", m.ID, err)
		}
		if len(m.Suggestions) == 0 {
			m.Suggestions = nil
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// --- Containers ---

// SaveContainer inserts or fully replaces a container by id.
func (s *Store) SaveContainer(c *model.Container) error {
	templates, history, files, logs, err := encodeContainer(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO containers
			(id, name, operator, prompt, chosen_templates, status, created_at, history, files, terminal_logs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			operator = excluded.operator,
			prompt = excluded.prompt,
			chosen_templates = excluded.chosen_templates,
			status = excluded.status,
			created_at = excluded.created_at,
			history = excluded.history,
			files = excluded.files,
			terminal_logs = excluded.terminal_logs`,
		c.ID, c.Name, c.Operator, c.Prompt, templates, c.Status, c.CreatedAt,
		history, files, logs,
	)
	if err != nil {
		return unavailable("saving container", err)
	}
	return nil
}

// GetContainer retrieves a container by id.
func (s *Store) GetContainer(id string) (*model.Container, error) {
	row := s.db.QueryRow(
		`SELECT id, name, operator, prompt, chosen_templates, status, created_at, history, files, terminal_logs
		 FROM containers WHERE id = ?`, id,
	)
	c, err := scanContainer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("container %s: %w", id, store.ErrNotFound)
	}
	return c, err
}

// ListContainers returns all containers descending by creation time.
func (s *Store) ListContainers() ([]*model.Container, error) {
	rows, err := s.db.Query(
		`SELECT id, name, operator, prompt, chosen_templates, status, created_at, history, files, terminal_logs
		 FROM containers ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, unavailable("listing containers", err)
	}
	defer rows.Close()

	var containers []*model.Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		containers = append(containers, c)
	}
	return containers, rows.Err()
}

// DeleteContainer removes a container. Deleting a missing id is a no-op.
func (s *Store) DeleteContainer(id string) error {
	if _, err := s.db.Exec(`DELETE FROM containers WHERE id = ?`, id); err != nil {
		return unavailable("deleting container", err)
	}
	return nil
}

// --- Encoding helpers ---

func encodeContainer(c *model.Container) (templates, history, files, logs string, err error) {
	tb, err := json.Marshal(c.ChosenTemplates)
	if err != nil {
		return "", "", "", "", fmt.Errorf("encoding chosen templates: %w", err)
	}
	hb, err := json.Marshal(emptyIfNil(c.History))
	if err != nil {
		return "", "", "", "", fmt.Errorf("encoding history: %w", err)
	}
	fm := c.Files
	if fm == nil {
		fm = map[string]string{}
	}
	fb, err := json.Marshal(fm)
	if err != nil {
		return "", "", "", "", fmt.Errorf("encoding files: %w", err)
	}
	lb, err := json.Marshal(emptyIfNil(c.TerminalLogs))
	if err != nil {
		return "", "", "", "", fmt.Errorf("encoding terminal logs: %w", err)
	}
	return string(tb), string(hb), string(fb), string(lb), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContainer(row scannable) (*model.Container, error) {
	c := &model.Container{}
	var templates, history, files, logs string
	err := row.Scan(
		&c.ID, &c.Name, &c.Operator, &c.Prompt, &templates, &c.Status,
		&c.CreatedAt, &history, &files, &logs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable("scanning container", err)
	}
	if err := json.Unmarshal([]byte(templates), &c.ChosenTemplates); err != nil {
		return nil, fmt.Errorf("decoding chosen templates for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(history), &c.History); err != nil {
		return nil, fmt.Errorf("decoding history for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(files), &c.Files); err != nil {
		return nil, fmt.Errorf("decoding files for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(logs), &c.TerminalLogs); err != nil {
		return nil, fmt.Errorf("decoding terminal logs for %s: %w", c.ID, err)
	}
	return c, nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, store.ErrStorageUnavailable, err)
}

var _ store.Store = (*Store)(nil)
