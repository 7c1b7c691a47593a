package answer

import (
	"context"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// ModelBackend writes the conversational answer. The reasoning backend
// is wired in here.
type ModelBackend interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Conversation is the session memory the synthesizer reads and extends.
type Conversation interface {
	Window(ctx context.Context, n int) ([]domain.ConversationTurn, error)
	Append(ctx context.Context, turns ...domain.ConversationTurn) error
}
