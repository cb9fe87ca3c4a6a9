package noop

import (
	"context"

	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/logger"
)

// Reply is the fixed report the noop completer answers with.
const Reply = `{"analysis":[],"total_score":0}`

// Completer is a fallback used when no model is configured (llm.provider NOOP).
// It never calls out and always returns Reply.
type Completer struct{}

var _ interfaces.Completer = (*Completer)(nil)

func NewCompleter() *Completer {
	return &Completer{}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	logger.Debug(ctx, "Noop completer called - returning empty report", "prompt_chars", len(prompt))
	return Reply, nil
}
