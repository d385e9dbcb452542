package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	entity_key   TEXT NOT NULL,
	text         TEXT NOT NULL,
	entity_type  TEXT NOT NULL,
	team_id      TEXT,
	grade_id     TEXT,
	season_id    TEXT,
	content_hash TEXT NOT NULL,
	embedding    BLOB,
	indexed_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_records (
	entity_key     TEXT PRIMARY KEY,
	content_hash   TEXT NOT NULL,
	last_synced_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	reason       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	entities     INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_entity_key ON documents(entity_key);
CREATE INDEX IF NOT EXISTS idx_documents_team_id ON documents(team_id);
CREATE INDEX IF NOT EXISTS idx_sync_log_started_at ON sync_log(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) ReplaceEntity(ctx context.Context, entityKey string, docs []model.Document, rec model.SyncRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE entity_key = ?`, entityKey); err != nil {
		return eris.Wrapf(err, "sqlite: clear documents for %s", entityKey)
	}
	for _, d := range docs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, entity_key, text, entity_type, team_id, grade_id, season_id, content_hash, embedding, indexed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.EntityKey, d.Text, string(d.Metadata.EntityType),
			d.Metadata.TeamID, d.Metadata.GradeID, d.Metadata.SeasonID,
			d.Metadata.ContentHash, encodeVector(d.Embedding), d.IndexedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert document %s", d.ID)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_records (entity_key, content_hash, last_synced_at) VALUES (?, ?, ?)
		 ON CONFLICT(entity_key) DO UPDATE SET content_hash = excluded.content_hash, last_synced_at = excluded.last_synced_at`,
		rec.EntityKey, rec.ContentHash, rec.LastSyncedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert sync record %s", rec.EntityKey)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) DeleteEntity(ctx context.Context, entityKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE entity_key = ?`, entityKey); err != nil {
		return eris.Wrapf(err, "sqlite: delete documents for %s", entityKey)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_records WHERE entity_key = ?`, entityKey); err != nil {
		return eris.Wrapf(err, "sqlite: delete sync record %s", entityKey)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_key, text, entity_type, team_id, grade_id, season_id, content_hash, embedding, indexed_at
		 FROM documents`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var entityType string
		var embedding []byte
		if err := rows.Scan(&d.ID, &d.EntityKey, &d.Text, &entityType,
			&d.Metadata.TeamID, &d.Metadata.GradeID, &d.Metadata.SeasonID,
			&d.Metadata.ContentHash, &embedding, &d.IndexedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		d.Metadata.EntityType = model.EntityKind(entityType)
		d.Embedding = decodeVector(embedding)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) GetSyncRecord(ctx context.Context, entityKey string) (*model.SyncRecord, error) {
	var rec model.SyncRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT entity_key, content_hash, last_synced_at FROM sync_records WHERE entity_key = ?`,
		entityKey,
	).Scan(&rec.EntityKey, &rec.ContentHash, &rec.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get sync record %s", entityKey)
	}
	return &rec, nil
}

func (s *SQLiteStore) ListSyncKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_key FROM sync_records`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sync keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) StartSync(ctx context.Context, trigger string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (reason, status, started_at) VALUES (?, 'running', ?)`,
		trigger, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: start sync")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: sync id")
}

func (s *SQLiteStore) CompleteSync(ctx context.Context, syncID int64, entities int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'complete', completed_at = ?, entities = ? WHERE id = ?`,
		time.Now().UTC(), entities, syncID,
	)
	return eris.Wrapf(err, "sqlite: complete sync %d", syncID)
}

func (s *SQLiteStore) FailSync(ctx context.Context, syncID int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'failed', completed_at = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), errMsg, syncID,
	)
	return eris.Wrapf(err, "sqlite: fail sync %d", syncID)
}

func (s *SQLiteStore) LastSuccess(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM sync_log WHERE status = 'complete' ORDER BY started_at DESC LIMIT 1`,
	).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last success")
	}
	return &t, nil
}

func (s *SQLiteStore) ListSyncEntries(ctx context.Context, limit int) ([]model.SyncEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reason, status, started_at, completed_at, entities, error
		 FROM sync_log ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sync entries")
	}
	defer rows.Close()

	var entries []model.SyncEntry
	for rows.Next() {
		var e model.SyncEntry
		var completedAt sql.NullTime
		var errStr sql.NullString
		if err := rows.Scan(&e.ID, &e.Trigger, &e.Status, &e.StartedAt, &completedAt, &e.Entities, &errStr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync entry")
		}
		if completedAt.Valid {
			e.CompletedAt = &completedAt.Time
		}
		e.Error = errStr.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
