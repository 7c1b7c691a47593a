package rerank

import (
	"context"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// Catalog provides display records for candidate hydration.
type Catalog interface {
	EventDetails(ctx context.Context, uuid string) (domain.EventDetails, error)
}

// ModelBackend is the judge model. The reasoning backend is wired in here.
type ModelBackend interface {
	GenerateStructured(ctx context.Context, prompt string, out any, temperature float32) error
}
