// Package index maintains the in-memory retrieval index over club documents,
// backed by the persistent store for warm starts.
package index

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// NewEmbedder builds the configured embedding provider. The "hash" provider
// is deterministic and needs no credentials, which keeps offline and test
// deployments self-contained.
func NewEmbedder(provider, apiKey, model string, dimensions int) (Embedder, error) {
	switch provider {
	case "openai", "":
		if apiKey == "" {
			return nil, eris.New("index: openai embedder requires an api key")
		}
		return NewOpenAIEmbedder(apiKey, model, dimensions), nil
	case "hash":
		return NewHashEmbedder(dimensions), nil
	default:
		return nil, eris.Errorf("index: unknown embedding provider %q", provider)
	}
}

// embeddingAPI is the slice of the OpenAI client the embedder uses.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder embeds text with the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client     embeddingAPI
	model      string
	dimensions int
}

// NewOpenAIEmbedder returns an embedder backed by the OpenAI API.
func NewOpenAIEmbedder(apiKey, model string, dimensions int) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimensions: dimensions,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.model),
		Input:      texts,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, eris.Wrap(err, "index: create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("index: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// HashEmbedder is a deterministic embedder derived from the text hash. The
// same text always maps to the same unit vector, so index tests and offline
// runs behave reproducibly without a network dependency.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a deterministic embedder of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(seed%1_000_003)*float64(i+1)) * 0.1)
	}

	// Unit length so inner product equals cosine similarity.
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range vec {
			vec[i] *= float32(norm)
		}
	}
	return vec, nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}
