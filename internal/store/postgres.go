package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// PgxPool is the subset of pgxpool.Pool used by PostgresStore. It is
// satisfied by both *pgxpool.Pool and pgxmock pools.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on Postgres via pgx.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres connects a pgx pool to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests).
func NewPostgresFromPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	entity_key   TEXT NOT NULL,
	text         TEXT NOT NULL,
	entity_type  TEXT NOT NULL,
	team_id      TEXT,
	grade_id     TEXT,
	season_id    TEXT,
	content_hash TEXT NOT NULL,
	embedding    BYTEA,
	indexed_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_records (
	entity_key     TEXT PRIMARY KEY,
	content_hash   TEXT NOT NULL,
	last_synced_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id           BIGSERIAL PRIMARY KEY,
	reason       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	entities     BIGINT NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_entity_key ON documents(entity_key);
CREATE INDEX IF NOT EXISTS idx_documents_team_id ON documents(team_id);
CREATE INDEX IF NOT EXISTS idx_sync_log_started_at ON sync_log(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) ReplaceEntity(ctx context.Context, entityKey string, docs []model.Document, rec model.SyncRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE entity_key = $1`, entityKey); err != nil {
		return eris.Wrapf(err, "postgres: clear documents for %s", entityKey)
	}
	for _, d := range docs {
		_, err := tx.Exec(ctx,
			`INSERT INTO documents (id, entity_key, text, entity_type, team_id, grade_id, season_id, content_hash, embedding, indexed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			d.ID, d.EntityKey, d.Text, string(d.Metadata.EntityType),
			d.Metadata.TeamID, d.Metadata.GradeID, d.Metadata.SeasonID,
			d.Metadata.ContentHash, encodeVector(d.Embedding), d.IndexedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert document %s", d.ID)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO sync_records (entity_key, content_hash, last_synced_at) VALUES ($1, $2, $3)
		 ON CONFLICT (entity_key) DO UPDATE SET content_hash = EXCLUDED.content_hash, last_synced_at = EXCLUDED.last_synced_at`,
		rec.EntityKey, rec.ContentHash, rec.LastSyncedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert sync record %s", rec.EntityKey)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (s *PostgresStore) DeleteEntity(ctx context.Context, entityKey string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE entity_key = $1`, entityKey); err != nil {
		return eris.Wrapf(err, "postgres: delete documents for %s", entityKey)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sync_records WHERE entity_key = $1`, entityKey); err != nil {
		return eris.Wrapf(err, "postgres: delete sync record %s", entityKey)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, entity_key, text, entity_type, team_id, grade_id, season_id, content_hash, embedding, indexed_at
		 FROM documents`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
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
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		d.Metadata.EntityType = model.EntityKind(entityType)
		d.Embedding = decodeVector(embedding)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) GetSyncRecord(ctx context.Context, entityKey string) (*model.SyncRecord, error) {
	var rec model.SyncRecord
	err := s.pool.QueryRow(ctx,
		`SELECT entity_key, content_hash, last_synced_at FROM sync_records WHERE entity_key = $1`,
		entityKey,
	).Scan(&rec.EntityKey, &rec.ContentHash, &rec.LastSyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get sync record %s", entityKey)
	}
	return &rec, nil
}

func (s *PostgresStore) ListSyncKeys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT entity_key FROM sync_records`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sync keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) StartSync(ctx context.Context, trigger string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sync_log (reason, status, started_at) VALUES ($1, 'running', now()) RETURNING id`,
		trigger,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: start sync")
	}
	return id, nil
}

func (s *PostgresStore) CompleteSync(ctx context.Context, syncID int64, entities int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_log SET status = 'complete', completed_at = now(), entities = $1 WHERE id = $2`,
		entities, syncID,
	)
	return eris.Wrapf(err, "postgres: complete sync %d", syncID)
}

func (s *PostgresStore) FailSync(ctx context.Context, syncID int64, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_log SET status = 'failed', completed_at = now(), error = $1 WHERE id = $2`,
		errMsg, syncID,
	)
	return eris.Wrapf(err, "postgres: fail sync %d", syncID)
}

func (s *PostgresStore) LastSuccess(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM sync_log WHERE status = 'complete' ORDER BY started_at DESC LIMIT 1`,
	).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last success")
	}
	return &t, nil
}

func (s *PostgresStore) ListSyncEntries(ctx context.Context, limit int) ([]model.SyncEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, reason, status, started_at, completed_at, entities, error
		 FROM sync_log ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sync entries")
	}
	defer rows.Close()

	var entries []model.SyncEntry
	for rows.Next() {
		var e model.SyncEntry
		var completedAt *time.Time
		var errStr *string
		if err := rows.Scan(&e.ID, &e.Trigger, &e.Status, &e.StartedAt, &completedAt, &e.Entities, &errStr); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
