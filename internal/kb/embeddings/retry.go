package embeddings

import (
	"context"
	"time"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/pkg/logger"
)

// RetryingModel wraps an EmbeddingModel with bounded retries and exponential
// backoff. Failures are never silently swallowed: once the attempts are
// exhausted the last cause is surfaced as an EmbeddingError. There is no
// fallback to zero vectors.
type RetryingModel struct {
	inner     interfaces.EmbeddingModel
	attempts  int
	baseDelay time.Duration
	timeout   time.Duration
	log       *logger.Logger
}

// NewRetryingModel wraps inner with the retry policy. Each attempt runs
// under its own timeout so a stalled external call cannot hang the caller.
func NewRetryingModel(inner interfaces.EmbeddingModel, attempts int, baseDelay, timeout time.Duration, log *logger.Logger) *RetryingModel {
	if attempts < 1 {
		attempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &RetryingModel{
		inner:     inner,
		attempts:  attempts,
		baseDelay: baseDelay,
		timeout:   timeout,
		log:       log,
	}
}

// Embed calls the wrapped model, retrying transient failures.
func (m *RetryingModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := m.baseDelay

	for attempt := 1; attempt <= m.attempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if m.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, m.timeout)
		}
		vectors, err := m.inner.Embed(attemptCtx, texts)
		cancel()
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if m.log != nil {
			m.log.Warn("embedding attempt failed, retrying: " + err.Error())
		}

		if attempt == m.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &kberrors.EmbeddingError{Attempts: attempt, Cause: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, &kberrors.EmbeddingError{Attempts: m.attempts, Cause: lastErr}
}

var _ interfaces.EmbeddingModel = (*RetryingModel)(nil)
