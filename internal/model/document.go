package model

import "time"

// DocumentMetadata tags an indexed snippet with the entity it was rendered
// from. A document references exactly one team and one grade; snippets are
// never shared across teams.
type DocumentMetadata struct {
	EntityType  EntityKind `json:"entity_type"`
	TeamID      string     `json:"team_id,omitempty"`
	GradeID     string     `json:"grade_id,omitempty"`
	SeasonID    string     `json:"season_id,omitempty"`
	ContentHash string     `json:"content_hash"`
}

// Document is the unit stored in the retrieval index: a short
// natural-language snippet plus metadata and its embedding.
type Document struct {
	ID        string           `json:"id"`
	EntityKey string           `json:"entity_key"`
	Text      string           `json:"text"`
	Embedding []float32        `json:"-"`
	Metadata  DocumentMetadata `json:"metadata"`
	IndexedAt time.Time        `json:"indexed_at"`
}

// SyncRecord remembers the content hash last written for an entity. A
// document is re-upserted only when its owning entity's hash changed.
type SyncRecord struct {
	EntityKey    string    `json:"entity_key"`
	ContentHash  string    `json:"content_hash"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// SyncEntry is a row in the sync log.
type SyncEntry struct {
	ID          int64      `json:"id"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Entities    int64      `json:"entities_synced"`
	Error       string     `json:"error,omitempty"`
}
