package llm

import "context"

// Embedder turns text into dense vectors for similarity search.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length produced by Embed.
	Dimensions() int
}
