package playhq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Seasons lists an organisation's seasons.
func (c *Client) Seasons(ctx context.Context, organisationID string) ([]json.RawMessage, error) {
	return c.collect(ctx, fmt.Sprintf("/organisations/%s/seasons", organisationID), nil)
}

// Grades lists the grades of a season.
func (c *Client) Grades(ctx context.Context, seasonID string) ([]json.RawMessage, error) {
	return c.collect(ctx, fmt.Sprintf("/seasons/%s/grades", seasonID), nil)
}

// Teams lists the teams registered in a grade.
func (c *Client) Teams(ctx context.Context, gradeID string) ([]json.RawMessage, error) {
	return c.collect(ctx, fmt.Sprintf("/grades/%s/teams", gradeID), nil)
}

// TeamFixtures lists a team's fixtures for a season.
func (c *Client) TeamFixtures(ctx context.Context, teamID, seasonID string) ([]json.RawMessage, error) {
	params := url.Values{}
	if seasonID != "" {
		params.Set("season", seasonID)
	}
	return c.collect(ctx, fmt.Sprintf("/teams/%s/fixture", teamID), params)
}

// TeamRoster lists a team's registered players.
func (c *Client) TeamRoster(ctx context.Context, teamID string) ([]json.RawMessage, error) {
	return c.collect(ctx, fmt.Sprintf("/teams/%s/roster", teamID), nil)
}

// Ladder returns the standings rows for a grade, in upstream order.
func (c *Client) Ladder(ctx context.Context, gradeID string) ([]json.RawMessage, error) {
	return c.collect(ctx, fmt.Sprintf("/grades/%s/ladder", gradeID), nil)
}

// GameSummary fetches the public scorecard for a single game. Games without
// a public summary return an empty data object upstream, which normalizes to
// a summary with no entries.
func (c *Client) GameSummary(ctx context.Context, gameID string) (json.RawMessage, error) {
	var env objectEnvelope
	if err := c.get(ctx, fmt.Sprintf("/games/%s/summary", gameID), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// RecordIterator lazily walks a paginated resource one record at a time.
// It is restartable: a fresh iterator from the same call starts at the
// first page again.
type RecordIterator struct {
	ctx     context.Context
	client  *Client
	path    string
	params  url.Values
	buf     []json.RawMessage
	pos     int
	cursor  string
	hasMore bool
	started bool
	err     error
}

// Records returns a lazy iterator over every record of a paginated resource.
func (c *Client) Records(ctx context.Context, path string, params url.Values) *RecordIterator {
	return &RecordIterator{ctx: ctx, client: c, path: path, params: params}
}

// Next advances to the next record, fetching pages on demand.
func (it *RecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.pos < len(it.buf) {
			return true
		}
		if it.started && !it.hasMore {
			return false
		}

		p := cloneValues(it.params)
		if it.cursor != "" {
			p.Set("cursor", it.cursor)
		}
		var pg page
		if err := it.client.get(it.ctx, it.path, p, &pg); err != nil {
			it.err = err
			return false
		}
		it.started = true
		it.buf = pg.Data
		it.pos = 0
		it.cursor = pg.Metadata.NextCursor
		it.hasMore = pg.Metadata.HasMore
	}
}

// Record returns the current record. Valid only after Next returned true.
func (it *RecordIterator) Record() json.RawMessage {
	rec := it.buf[it.pos]
	it.pos++
	return rec
}

// Err reports the first error encountered while iterating.
func (it *RecordIterator) Err() error {
	return it.err
}
