package llmobs

import (
	"context"
	"errors"
	"time"

	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/llm"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/metrics"
	"trade-mentor/internal/trace"
)

// observableCompleter wraps a Completer with logging, tracing and metrics
type observableCompleter struct {
	completer interfaces.Completer
	metrics   *metrics.Metrics
}

var _ interfaces.Completer = (*observableCompleter)(nil)

// Wrap wraps a completer with observability middleware. m may be nil.
func Wrap(completer interfaces.Completer, m *metrics.Metrics) interfaces.Completer {
	return &observableCompleter{
		completer: completer,
		metrics:   m,
	}
}

func (oc *observableCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Skip(1) reports the actual caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion", "prompt_chars", len(prompt))

	start := time.Now()
	reply, err := oc.completer.Complete(ctx, prompt)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, llm.ErrNoChoices):
		oc.metrics.ObserveLLM("empty", elapsed)
		logger.InfoSkip(ctx, 1, "Completion returned no choices", "duration_ms", elapsed.Milliseconds())
	case err != nil:
		oc.metrics.ObserveLLM("error", elapsed)
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err, "duration_ms", elapsed.Milliseconds())
	default:
		oc.metrics.ObserveLLM("ok", elapsed)
		logger.InfoSkip(ctx, 1, "Completion received",
			"reply_chars", len(reply),
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return reply, err
}
