package interfaces

import "context"

// Completer sends a single user prompt to a chat model and returns the text of
// the first choice.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
