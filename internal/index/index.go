package index

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
	"github.com/caroline-springs-cc/pitchbot/internal/store"
)

// Filter narrows a query to documents matching the set fields. Empty fields
// match everything. Filtering happens before ranking, so top-k is computed
// over the matching subset only.
type Filter struct {
	EntityType model.EntityKind
	TeamID     string
	GradeID    string
	SeasonID   string
}

func (f Filter) matches(m model.DocumentMetadata) bool {
	if f.EntityType != "" && f.EntityType != m.EntityType {
		return false
	}
	if f.TeamID != "" && f.TeamID != m.TeamID {
		return false
	}
	if f.GradeID != "" && f.GradeID != m.GradeID {
		return false
	}
	if f.SeasonID != "" && f.SeasonID != m.SeasonID {
		return false
	}
	return true
}

// Hit is a ranked query result.
type Hit struct {
	Document model.Document
	Score    float64
}

// UpsertResult reports what a sync batch actually changed.
type UpsertResult struct {
	Upserted int
	Skipped  int
}

// Index is a brute-force cosine index over the club's documents. All
// documents live in memory; the store is the durable copy used to warm the
// index at startup and to survive restarts between syncs.
type Index struct {
	store    store.Store
	embedder Embedder

	mu   sync.RWMutex
	docs map[string][]model.Document // entity key -> chunks
}

// New builds an empty index over the given store and embedder.
func New(st store.Store, emb Embedder) *Index {
	return &Index{
		store:    st,
		embedder: emb,
		docs:     make(map[string][]model.Document),
	}
}

// Load warms the in-memory index from the store. Called once at startup
// before the first query is served.
func (ix *Index) Load(ctx context.Context) error {
	docs, err := ix.store.ListDocuments(ctx)
	if err != nil {
		return eris.Wrap(err, "index: warm start")
	}

	byEntity := make(map[string][]model.Document)
	for _, d := range docs {
		byEntity[d.EntityKey] = append(byEntity[d.EntityKey], d)
	}

	ix.mu.Lock()
	ix.docs = byEntity
	ix.mu.Unlock()

	zap.L().Info("index warmed from store",
		zap.Int("entities", len(byEntity)),
		zap.Int("documents", len(docs)))
	return nil
}

// Size returns the number of documents currently held.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, chunks := range ix.docs {
		n += len(chunks)
	}
	return n
}

// Upsert indexes a batch of documents grouped by entity. Entities whose
// content hash matches the stored sync record are skipped without
// re-embedding, so re-running a sync over unchanged data writes nothing.
// Changed entities are embedded and swapped atomically per entity.
func (ix *Index) Upsert(ctx context.Context, docs []model.Document) (UpsertResult, error) {
	byEntity := make(map[string][]model.Document)
	var order []string
	for _, d := range docs {
		if _, seen := byEntity[d.EntityKey]; !seen {
			order = append(order, d.EntityKey)
		}
		byEntity[d.EntityKey] = append(byEntity[d.EntityKey], d)
	}

	var res UpsertResult
	for _, key := range order {
		chunks := byEntity[key]

		rec, err := ix.store.GetSyncRecord(ctx, key)
		if err != nil {
			return res, err
		}
		hash := chunks[0].Metadata.ContentHash
		if rec != nil && rec.ContentHash == hash {
			res.Skipped += len(chunks)
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vecs, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return res, eris.Wrapf(err, "index: embed entity %s", key)
		}

		now := time.Now().UTC()
		for i := range chunks {
			chunks[i].Embedding = vecs[i]
			chunks[i].IndexedAt = now
		}

		newRec := model.SyncRecord{EntityKey: key, ContentHash: hash, LastSyncedAt: now}
		if err := ix.store.ReplaceEntity(ctx, key, chunks, newRec); err != nil {
			return res, err
		}

		ix.mu.Lock()
		ix.docs[key] = chunks
		ix.mu.Unlock()

		res.Upserted += len(chunks)
	}
	return res, nil
}

// Delete removes entities that no longer exist upstream.
func (ix *Index) Delete(ctx context.Context, entityKeys []string) error {
	for _, key := range entityKeys {
		if err := ix.store.DeleteEntity(ctx, key); err != nil {
			return err
		}
		ix.mu.Lock()
		delete(ix.docs, key)
		ix.mu.Unlock()
	}
	return nil
}

// Query embeds the question, filters by metadata, then ranks the matching
// documents by cosine similarity. Ties break toward the most recently
// indexed document.
func (ix *Index) Query(ctx context.Context, text string, filter Filter, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	qvec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, eris.Wrap(err, "index: embed query")
	}

	ix.mu.RLock()
	var hits []Hit
	for _, chunks := range ix.docs {
		for _, d := range chunks {
			if !filter.matches(d.Metadata) {
				continue
			}
			hits = append(hits, Hit{Document: d, Score: cosine(qvec, d.Embedding)})
		}
	}
	ix.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.IndexedAt.After(hits[j].Document.IndexedAt)
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// cosine returns the cosine similarity of two vectors, 0 when either is
// zero-length or the dimensions disagree.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
