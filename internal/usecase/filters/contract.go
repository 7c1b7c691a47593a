package filters

import "context"

// ModelBackend is the model contract needed for extraction. The reasoning
// backend is wired in here; strict "only what the query says" instruction
// following matters more than latency.
type ModelBackend interface {
	GenerateStructured(ctx context.Context, prompt string, out any, temperature float32) error
}
