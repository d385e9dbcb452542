package playhq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caroline-springs-cc/pitchbot/internal/resilience"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", "ca",
		WithRetryConfig(fastRetry(3)),
		WithRequestsPerMinute(60000),
	)
}

func TestClient_SendsCredentialHeaders(t *testing.T) {
	var gotKey, gotTenant string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotTenant = r.Header.Get("x-phq-tenant")
		fmt.Fprint(w, `{"data":[],"metadata":{"hasMore":false}}`)
	}))

	_, err := c.Seasons(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "ca", gotTenant)
}

func TestClient_FollowsCursorUntilHasMoreFalse(t *testing.T) {
	var cursors []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		switch cursor {
		case "":
			fmt.Fprint(w, `{"data":[{"id":"a"},{"id":"b"}],"metadata":{"hasMore":true,"nextCursor":"c2"}}`)
		case "c2":
			fmt.Fprint(w, `{"data":[{"id":"c"}],"metadata":{"hasMore":true,"nextCursor":"c3"}}`)
		case "c3":
			fmt.Fprint(w, `{"data":[{"id":"d"}],"metadata":{"hasMore":false}}`)
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))

	records, err := c.Teams(context.Background(), "grade-1")
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"", "c2", "c3"}, cursors)

	// Response order is preserved across pages.
	var first struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(records[0], &first))
	assert.Equal(t, "a", first.ID)
}

func TestClient_RetriesOn429WithRetryAfter(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"x"}],"metadata":{"hasMore":false}}`)
	}))

	records, err := c.Ladder(context.Background(), "grade-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ExhaustionSurfacesUpstreamUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Seasons(context.Background(), "org-1")
	require.Error(t, err)

	var ue *UpstreamUnavailableError
	assert.True(t, errors.As(err, &ue), "expected UpstreamUnavailableError, got %v", err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GameSummary(context.Background(), "missing")
	require.Error(t, err)

	var ue *UpstreamUnavailableError
	assert.False(t, errors.As(err, &ue))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GameSummaryUnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games/g1/summary", r.URL.Path)
		fmt.Fprint(w, `{"data":{"id":"g1","result":"won by 5 runs"}}`)
	}))

	raw, err := c.GameSummary(context.Background(), "g1")
	require.NoError(t, err)

	var got struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "won by 5 runs", got.Result)
}

func TestRecordIterator_LazyAndRestartable(t *testing.T) {
	var pagesServed atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed.Add(1)
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{"data":[{"id":"1"}],"metadata":{"hasMore":true,"nextCursor":"n"}}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"2"}],"metadata":{"hasMore":false}}`)
	}))

	it := c.Records(context.Background(), "/grades/g/teams", url.Values{})

	var ids []string
	for it.Next() {
		var rec struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(it.Record(), &rec))
		ids = append(ids, rec.ID)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Equal(t, int32(2), pagesServed.Load())

	// A fresh iterator starts over at page one.
	it2 := c.Records(context.Background(), "/grades/g/teams", url.Values{})
	require.True(t, it2.Next())
	assert.Equal(t, int32(3), pagesServed.Load())
}

func TestRecordIterator_SkipsEmptyPages(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{"data":[],"metadata":{"hasMore":true,"nextCursor":"n"}}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"only"}],"metadata":{"hasMore":false}}`)
	}))

	it := c.Records(context.Background(), "/seasons/s/grades", nil)
	require.True(t, it.Next())
	var rec struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(it.Record(), &rec))
	assert.Equal(t, "only", rec.ID)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))

	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	assert.Greater(t, parseRetryAfter(future), 5*time.Second)
}
