// Package vector holds the per-case similarity index: chunk vectors supplied
// by an external embedding collaborator, scored by cosine similarity.
package vector

import "context"

// Embedder is the external text→vector collaborator. Implementations must
// return one vector per input text, all of the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}
