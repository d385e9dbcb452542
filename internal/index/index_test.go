package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
	"github.com/caroline-springs-cc/pitchbot/internal/store"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return New(st, NewHashEmbedder(64))
}

func doc(entityKey, text, hash, teamID string, kind model.EntityKind) model.Document {
	return model.Document{
		ID:        entityKey + "#0",
		EntityKey: entityKey,
		Text:      text,
		Metadata: model.DocumentMetadata{
			EntityType:  kind,
			TeamID:      teamID,
			GradeID:     "grade-1",
			SeasonID:    "season-1",
			ContentHash: hash,
		},
	}
}

func TestUpsert_SecondRunWritesNothing(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	docs := []model.Document{
		doc("fixture/fx-1", "Caroline Springs Blue U10 plays Essendon U10", "h1", "team-1", model.KindFixture),
		doc("ladder/grade-1", "Caroline Springs Blue U10 sits 3rd of 8", "h2", "team-1", model.KindLadder),
	}

	first, err := ix.Upsert(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Upserted)
	assert.Zero(t, first.Skipped)

	second, err := ix.Upsert(ctx, docs)
	require.NoError(t, err)
	assert.Zero(t, second.Upserted)
	assert.Equal(t, 2, second.Skipped)
}

func TestUpsert_ChangedHashReplacesEntity(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	orig := doc("fixture/fx-1", "scheduled for Saturday", "h1", "team-1", model.KindFixture)
	_, err := ix.Upsert(ctx, []model.Document{orig})
	require.NoError(t, err)

	updated := doc("fixture/fx-1", "rescheduled to Sunday", "h2", "team-1", model.KindFixture)
	res, err := ix.Upsert(ctx, []model.Document{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)

	hits, err := ix.Query(ctx, "when is the game", Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "rescheduled to Sunday", hits[0].Document.Text)
}

func TestQuery_FilterAppliedBeforeRanking(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	// The other team's fixture uses the exact query text, so it would
	// dominate any post-ranking filter.
	query := "next game for the under 10s"
	docs := []model.Document{
		doc("fixture/fx-ours", "Caroline Springs Blue U10 fixture details", "h1", "team-1", model.KindFixture),
		doc("fixture/fx-theirs", query, "h2", "team-2", model.KindFixture),
	}
	_, err := ix.Upsert(ctx, docs)
	require.NoError(t, err)

	hits, err := ix.Query(ctx, query, Filter{TeamID: "team-1"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "team-1", hits[0].Document.Metadata.TeamID)
}

func TestQuery_FilterByEntityType(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	docs := []model.Document{
		doc("fixture/fx-1", "round 5 fixture", "h1", "team-1", model.KindFixture),
		doc("ladder/grade-1", "ladder standings", "h2", "team-1", model.KindLadder),
	}
	_, err := ix.Upsert(ctx, docs)
	require.NoError(t, err)

	hits, err := ix.Query(ctx, "standings", Filter{EntityType: model.KindLadder}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.KindLadder, hits[0].Document.Metadata.EntityType)
}

func TestQuery_TiesBreakTowardNewest(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	// Identical text means identical embeddings and identical scores.
	old := doc("summary/g-1", "match summary for round 3", "h1", "team-1", model.KindSummary)
	_, err := ix.Upsert(ctx, []model.Document{old})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	newer := doc("summary/g-2", "match summary for round 3", "h2", "team-1", model.KindSummary)
	newer.ID = "summary/g-2#0"
	_, err = ix.Upsert(ctx, []model.Document{newer})
	require.NoError(t, err)

	hits, err := ix.Query(ctx, "match summary for round 3", Filter{}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "summary/g-2", hits[0].Document.EntityKey)
}

func TestDelete_RemovesFromMemoryAndStore(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	_, err := ix.Upsert(ctx, []model.Document{
		doc("team/team-1", "team profile", "h1", "team-1", model.KindTeam),
	})
	require.NoError(t, err)
	require.Equal(t, 1, ix.Size())

	require.NoError(t, ix.Delete(ctx, []string{"team/team-1"}))
	assert.Zero(t, ix.Size())

	// Re-upserting after delete must write again, not skip.
	res, err := ix.Upsert(ctx, []model.Document{
		doc("team/team-1", "team profile", "h1", "team-1", model.KindTeam),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
}

func TestLoad_WarmStart(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "warm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	ctx := context.Background()
	first := New(st, NewHashEmbedder(64))
	_, err = first.Upsert(ctx, []model.Document{
		doc("fixture/fx-1", "Caroline Springs Blue U10 plays at Caroline Springs Oval", "h1", "team-1", model.KindFixture),
	})
	require.NoError(t, err)

	// A fresh index over the same store sees the documents after Load.
	second := New(st, NewHashEmbedder(64))
	require.NoError(t, second.Load(ctx))
	assert.Equal(t, 1, second.Size())

	hits, err := second.Query(ctx, "where do we play", Filter{TeamID: "team-1"}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(32)
	a, err := e.Embed(context.Background(), "caroline springs")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "caroline springs")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	c, err := e.Embed(context.Background(), "essendon")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosine(nil, nil))
}
