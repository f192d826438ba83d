// Package oracle wraps the generative-text backends used for reply
// refinement and initial scam classification. The backends are unreliable by
// contract: callers must treat every error as a signal to use their
// deterministic fallback, never as a request failure.
package oracle

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("oracle returned empty completion")

// Client produces a best-effort completion for a prompt. Implementations
// honor ctx cancellation and carry their own transport timeouts.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
