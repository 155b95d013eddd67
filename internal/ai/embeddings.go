package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Embedder converts free text into a fixed-length numeric vector used for
// similarity comparison.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedQuery returns an embedding vector for the given text using the
// configured embedding model (text-embedding-004 by default).
func (gc *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	model := gc.client.EmbeddingModel(gc.embeddingModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}

	// genai SDK returns []float32 for Embedding.Values
	return resp.Embedding.Values, nil
}
