// Package llm holds what the model clients share.
package llm

import "errors"

// ErrNoChoices is returned when the model answers without any choice.
var ErrNoChoices = errors.New("model returned no choices")
