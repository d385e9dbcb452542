package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// Generator composes text with a fixed model and token budget, logging cost
// per call.
type Generator struct {
	client    Client
	model     string
	maxTokens int64
}

// NewGenerator wires a Generator over a client.
func NewGenerator(client Client, model string, maxTokens int64) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{client: client, model: model, maxTokens: maxTokens}
}

// Generate sends a system prompt plus a single user turn and returns the
// text of the reply.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateMessage(ctx, MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    BuildCachedSystemBlocks(system),
		Messages:  []Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: generate")
	}
	resp.Usage.LogCost(g.model, "answer")

	text := resp.Text()
	if text == "" {
		return "", eris.New("anthropic: empty completion")
	}
	return text, nil
}
