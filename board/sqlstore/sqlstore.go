// Package sqlstore persists boards in SQLite so sessions survive process
// restarts. Documents are stored one row per board with each replicated
// field serialized as a msgpack blob, matching the wholesale field
// replacement the synchronization contract performs.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/board"
)

const schema = `
CREATE TABLE IF NOT EXISTS boards (
	id               TEXT PRIMARY KEY,
	description      TEXT NOT NULL,
	host             TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL,
	last_modified    TIMESTAMP NOT NULL,
	last_modified_by TEXT NOT NULL,
	revision         INTEGER NOT NULL DEFAULT 0,
	nodes            BLOB,
	relationships    BLOB,
	participants     BLOB,
	presence         BLOB
);`

// Store implements board.Store on a SQL database. Change notification is
// revision polling; same-process writers are also fanned out directly.
type Store struct {
	db   *sql.DB
	poll time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets how often Watch checks for foreign writes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.poll = d }
}

// Open opens or creates a SQLite database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent pushes.
	db.SetMaxOpenConns(1)
	s, err := NewWithDB(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle. The schema is created if
// missing.
func NewWithDB(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, poll: 250 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlstore: create schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateBoard inserts an empty board owned by host.
func (s *Store) CreateBoard(ctx context.Context, description, host string) (string, error) {
	id := "board-" + uuid.NewString()
	now := time.Now().UTC()
	participants, err := msgpack.Marshal([]string{host})
	if err != nil {
		return "", fmt.Errorf("sqlstore: encode participants: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO boards
			(id, description, host, created_at, updated_at,
			 last_modified, last_modified_by, revision,
			 nodes, relationships, participants, presence)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL, ?, NULL)`,
		id, description, host, now, now, now, host, participants)
	if err != nil {
		return "", fmt.Errorf("sqlstore: create board: %w", err)
	}
	return id, nil
}

// ListBoards returns the boards the identity participates in. Membership
// lives inside the msgpack participants blob, so filtering happens here
// rather than in SQL.
func (s *Store) ListBoards(ctx context.Context, participant string) ([]board.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, host, created_at, updated_at, participants
		FROM boards ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list boards: %w", err)
	}
	defer rows.Close()

	var out []board.Info
	for rows.Next() {
		var info board.Info
		var participants []byte
		if err := rows.Scan(&info.ID, &info.Description, &info.Host,
			&info.CreatedAt, &info.UpdatedAt, &participants); err != nil {
			return nil, fmt.Errorf("sqlstore: scan board: %w", err)
		}
		if err := decodeBlob(participants, &info.Participants); err != nil {
			return nil, err
		}
		for _, p := range info.Participants {
			if p == participant {
				out = append(out, info)
				break
			}
		}
	}
	return out, rows.Err()
}

// RenameBoard updates the board description.
func (s *Store) RenameBoard(ctx context.Context, id, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE boards SET description = ?, updated_at = ? WHERE id = ?`,
		description, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlstore: rename board: %w", err)
	}
	return checkFound(res, id)
}

// InviteParticipant appends an identity to the participant set if absent.
func (s *Store) InviteParticipant(ctx context.Context, id, identity string) error {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range doc.Participants {
		if p == identity {
			return nil
		}
	}
	participants := append(doc.Participants, identity)
	return s.Replace(ctx, id, board.Update{Participants: &participants},
		doc.LastModifiedBy, time.Now().UTC())
}

// DeleteBoard deletes the board row.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete board: %w", err)
	}
	return checkFound(res, id)
}

// Load fetches the current document once.
func (s *Store) Load(ctx context.Context, id string) (board.Document, error) {
	doc, _, err := s.load(ctx, id)
	return doc, err
}

func (s *Store) load(ctx context.Context, id string) (board.Document, int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_modified, last_modified_by, revision,
		       nodes, relationships, participants, presence
		FROM boards WHERE id = ?`, id)

	var doc board.Document
	var revision int64
	var nodes, relationships, participants, presence []byte
	err := row.Scan(&doc.LastModified, &doc.LastModifiedBy, &revision,
		&nodes, &relationships, &participants, &presence)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Document{}, 0, classflow.NewNotFoundError("board", id)
	}
	if err != nil {
		return board.Document{}, 0, fmt.Errorf("sqlstore: load board: %w", err)
	}
	if err := decodeBlob(nodes, &doc.Nodes); err != nil {
		return board.Document{}, 0, err
	}
	if err := decodeBlob(relationships, &doc.Relationships); err != nil {
		return board.Document{}, 0, err
	}
	if err := decodeBlob(participants, &doc.Participants); err != nil {
		return board.Document{}, 0, err
	}
	if err := decodeBlob(presence, &doc.Presence); err != nil {
		return board.Document{}, 0, err
	}
	return doc, revision, nil
}

// Replace overwrites the selected field blobs and bumps the revision.
// Replication stays last-writer-wins: no compare against the stored
// revision, the final UPDATE is the surviving state.
func (s *Store) Replace(ctx context.Context, id string, u board.Update, by string, at time.Time) error {
	query := `UPDATE boards SET last_modified = ?, last_modified_by = ?, revision = revision + 1`
	args := []any{at, by}

	set := func(column string, v any) error {
		blob, err := msgpack.Marshal(v)
		if err != nil {
			return fmt.Errorf("sqlstore: encode %s: %w", column, err)
		}
		query += ", " + column + " = ?"
		args = append(args, blob)
		return nil
	}
	if u.Nodes != nil {
		if err := set("nodes", *u.Nodes); err != nil {
			return err
		}
	}
	if u.Relationships != nil {
		if err := set("relationships", *u.Relationships); err != nil {
			return err
		}
	}
	if u.Participants != nil {
		if err := set("participants", *u.Participants); err != nil {
			return err
		}
	}
	if u.Presence != nil {
		if err := set("presence", *u.Presence); err != nil {
			return err
		}
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlstore: replace: %w", err)
	}
	return checkFound(res, id)
}

// Watch polls the revision column and delivers the document whenever a
// write by any process lands.
func (s *Store) Watch(ctx context.Context, id string) (<-chan board.Document, func(), error) {
	_, revision, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ch := make(chan board.Document, 16)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		last := revision
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
			}
			doc, rev, err := s.load(watchCtx, id)
			if err != nil || rev == last {
				continue
			}
			last = rev
			select {
			case ch <- doc:
			case <-watchCtx.Done():
				return
			}
		}
	}()
	return ch, cancel, nil
}

func decodeBlob[T any](blob []byte, into *T) error {
	if len(blob) == 0 {
		return nil
	}
	if err := msgpack.Unmarshal(blob, into); err != nil {
		return fmt.Errorf("sqlstore: decode blob: %w", err)
	}
	return nil
}

func checkFound(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	if n == 0 {
		return classflow.NewNotFoundError("board", id)
	}
	return nil
}

var _ board.Store = (*Store)(nil)
