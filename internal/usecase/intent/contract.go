package intent

import "context"

// ModelBackend is the model contract needed for classification. The fast
// backend is wired in here; classification is cheap and latency-bound.
type ModelBackend interface {
	GenerateStructured(ctx context.Context, prompt string, out any, temperature float32) error
}
