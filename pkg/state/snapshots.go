package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS state_snapshots (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	snapshot TEXT NOT NULL,
	delta TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_state_snapshots_session
	ON state_snapshots(session_id, created_at);
`

// SnapshotRecord is one persisted snapshot plus the delta that produced it.
type SnapshotRecord struct {
	ID        string         `db:"id"`
	SessionID string         `db:"session_id"`
	Snapshot  string         `db:"snapshot"`
	Delta     sql.NullString `db:"delta"`
	CreatedAt time.Time      `db:"created_at"`
}

// SnapshotStore persists state snapshots per session to SQLite so a session
// can be resumed with its last committed state.
type SnapshotStore struct {
	db *sqlx.DB
}

// DefaultSnapshotDBPath returns the default snapshot database location.
func DefaultSnapshotDBPath() (string, error) {
	if base := os.Getenv("SKILLET_BASE_PATH"); base != "" {
		return filepath.Join(base, "state.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillet", "state.db"), nil
}

// OpenSnapshotStore opens or creates the snapshot database at the given path.
func OpenSnapshotStore(ctx context.Context, dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot database")
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to execute pragma: %s", pragma)
		}
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create snapshot schema")
	}

	return &SnapshotStore{db: db}, nil
}

// Save persists a snapshot for a session. delta may be nil when the
// execution produced no state change.
func (s *SnapshotStore) Save(ctx context.Context, sessionID string, snapshot map[string]map[string]any, delta json.RawMessage) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}

	deltaValue := sql.NullString{}
	if len(delta) > 0 {
		deltaValue = sql.NullString{String: string(delta), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO state_snapshots (id, session_id, snapshot, delta, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, string(raw), deltaValue, time.Now().UTC(),
	)
	return errors.Wrap(err, "failed to save snapshot")
}

// Latest returns the most recent snapshot for a session, or nil when the
// session has none.
func (s *SnapshotStore) Latest(ctx context.Context, sessionID string) (map[string]map[string]any, error) {
	var record SnapshotRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT id, session_id, snapshot, delta, created_at FROM state_snapshots
		 WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		sessionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load latest snapshot")
	}

	var snapshot map[string]map[string]any
	if err := json.Unmarshal([]byte(record.Snapshot), &snapshot); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal snapshot")
	}
	return snapshot, nil
}

// History returns all snapshot records for a session, oldest first.
func (s *SnapshotStore) History(ctx context.Context, sessionID string) ([]SnapshotRecord, error) {
	var records []SnapshotRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, session_id, snapshot, delta, created_at FROM state_snapshots
		 WHERE session_id = ? ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load snapshot history")
	}
	return records, nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
