package domain

import "context"

// ModelBackend is the shared text/embedding model contract between layers.
// Two configured instances exist at runtime: a fast one for cheap
// classification calls and a reasoning one for extraction, judging, and
// answer synthesis. Both satisfy the same interface; the choice is made
// once at construction, never at the call site.
type ModelBackend interface {
	// Generate returns plain completion text for the prompt.
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)

	// GenerateStructured asks for a JSON object matching the shape of out
	// and decodes into it. Implementations must tolerate markdown code
	// fences around the JSON body.
	GenerateStructured(ctx context.Context, prompt string, out any, temperature float32) error

	// Embed vectorizes text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
