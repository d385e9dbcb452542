// Package store persists index documents, sync records, and the sync log.
// Two backends are provided: SQLite (default, single binary deploys) and
// Postgres.
package store

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// Store defines the persistence interface shared by the retrieval index and
// the sync orchestrator. Writes happen only during sync passes; query
// handling reads.
type Store interface {
	// ReplaceEntity atomically swaps the documents owned by an entity and
	// its sync record. Readers see the pre- or post-state, never a torn mix.
	ReplaceEntity(ctx context.Context, entityKey string, docs []model.Document, rec model.SyncRecord) error

	// DeleteEntity removes an entity's documents and sync record.
	DeleteEntity(ctx context.Context, entityKey string) error

	// ListDocuments returns every stored document (used to warm the
	// in-memory index at startup).
	ListDocuments(ctx context.Context) ([]model.Document, error)

	// GetSyncRecord returns the sync record for an entity, or nil when the
	// entity has never been indexed.
	GetSyncRecord(ctx context.Context, entityKey string) (*model.SyncRecord, error)

	// ListSyncKeys returns every known entity key.
	ListSyncKeys(ctx context.Context) ([]string, error)

	// Sync log.
	StartSync(ctx context.Context, trigger string) (int64, error)
	CompleteSync(ctx context.Context, syncID int64, entities int64) error
	FailSync(ctx context.Context, syncID int64, errMsg string) error
	LastSuccess(ctx context.Context) (*time.Time, error)
	ListSyncEntries(ctx context.Context, limit int) ([]model.SyncEntry, error)

	// Lifecycle.
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// New opens a store for the configured driver.
func New(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// encodeVector packs an embedding as little-endian float32 bytes.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// decodeVector unpacks little-endian float32 bytes.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
