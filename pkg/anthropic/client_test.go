package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	lastReq MessageRequest
	resp    *MessageResponse
	err     error
}

func (f *fakeClient) CreateMessage(_ context.Context, req MessageRequest) (*MessageResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "The next game is "},
		{Type: "thinking", Text: "ignored"},
		{Type: "text", Text: "on Saturday."},
	}}
	assert.Equal(t, "The next game is on Saturday.", resp.Text())
}

func TestGenerator_Generate(t *testing.T) {
	fake := &fakeClient{resp: &MessageResponse{
		Content: []ContentBlock{{Type: "text", Text: "hello"}},
	}}
	g := NewGenerator(fake, "claude-haiku-4-5-20251001", 512)

	out, err := g.Generate(context.Background(), "system prompt", "user question")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, fake.lastReq.System, 1)
	assert.Equal(t, "system prompt", fake.lastReq.System[0].Text)
	require.NotNil(t, fake.lastReq.System[0].CacheControl)
	assert.Equal(t, "1h", fake.lastReq.System[0].CacheControl.TTL)
	require.Len(t, fake.lastReq.Messages, 1)
	assert.Equal(t, "user", fake.lastReq.Messages[0].Role)
	assert.EqualValues(t, 512, fake.lastReq.MaxTokens)
}

func TestGenerator_EmptyCompletion(t *testing.T) {
	fake := &fakeClient{resp: &MessageResponse{}}
	g := NewGenerator(fake, "claude-haiku-4-5-20251001", 0)

	_, err := g.Generate(context.Background(), "s", "u")
	require.Error(t, err)
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	assert.Zero(t, u.EstimateCost("unknown-model"))
}
