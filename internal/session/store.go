// Package session provides the SQLite-backed transcript and log store.
//
// The default DSN is :memory:, so nothing outlives the process. A file
// DSN works too, but session durability is not a feature the engine
// depends on: the store mirrors State, it never feeds it.
package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/cocoro-ai/cocoro/internal/errors"
	"github.com/cocoro-ai/cocoro/internal/model"
)

// Store mirrors session state into SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the store at the given DSN and creates the schema.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to open session store", apperrors.CategorySystem)
	}

	// A :memory: database exists per connection; more than one would
	// silently shard the session.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			emotion TEXT NOT NULL,
			intent TEXT NOT NULL,
			risk INTEGER NOT NULL,
			module TEXT NOT NULL,
			mode INTEGER NOT NULL,
			model TEXT NOT NULL,
			fallback INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, ts)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to initialize schema", apperrors.CategorySystem)
		}
	}
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveMessage mirrors one transcript turn.
func (s *Store) SaveMessage(ctx context.Context, sessionID string, seq int, msg model.Message) error {
	if s == nil || s.db == nil {
		return apperrors.System(apperrors.CodeSessionStoreFailed, "session store not initialized")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, seq, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), sessionID, seq, msg.Role, msg.Content, time.Now().Unix())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to save message", apperrors.CategorySystem)
	}
	return nil
}

// SaveTurn mirrors one turn's metadata record.
func (s *Store) SaveTurn(ctx context.Context, sessionID string, rec TurnRecord) error {
	if s == nil || s.db == nil {
		return apperrors.System(apperrors.CodeSessionStoreFailed, "session store not initialized")
	}

	fallback := 0
	if rec.Fallback {
		fallback = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, ts, emotion, intent, risk, module, mode, model, fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), sessionID, rec.Timestamp.Unix(), rec.Emotion, rec.Intent,
		rec.RiskScore, rec.Module, rec.Mode, rec.Model, fallback)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to save turn", apperrors.CategorySystem)
	}
	return nil
}

// Transcript returns the mirrored transcript for a session in order.
func (s *Store) Transcript(ctx context.Context, sessionID string) ([]model.Message, error) {
	if s == nil || s.db == nil {
		return nil, apperrors.System(apperrors.CodeSessionStoreFailed, "session store not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to load transcript", apperrors.CategorySystem)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to scan message", apperrors.CategorySystem)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// TurnLog returns the mirrored metadata records for a session in order.
func (s *Store) TurnLog(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	if s == nil || s.db == nil {
		return nil, apperrors.System(apperrors.CodeSessionStoreFailed, "session store not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, emotion, intent, risk, module, mode, model, fallback FROM turns
		WHERE session_id = ?
		ORDER BY ts ASC
	`, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to load turn log", apperrors.CategorySystem)
	}
	defer rows.Close()

	var recs []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var ts int64
		var fallback int
		if err := rows.Scan(&ts, &rec.Emotion, &rec.Intent, &rec.RiskScore, &rec.Module, &rec.Mode, &rec.Model, &fallback); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSessionStoreFailed, "failed to scan turn", apperrors.CategorySystem)
		}
		rec.Timestamp = time.Unix(ts, 0)
		rec.Fallback = fallback != 0
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
