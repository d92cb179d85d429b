package llm

import (
	"context"
	"time"

	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/common/metrics"
)

// CallWithRetry attempts op up to maxRetries times with exponential
// backoff (baseDelay, 2*baseDelay, ...). The final failure is returned
// as-is. This is the only place completion calls are retried; stage
// analyzers never implement their own retry loop.
func CallWithRetry(
	ctx context.Context,
	log logger.Logger,
	stage string,
	maxRetries int,
	baseDelay time.Duration,
	op func(ctx context.Context) (string, error),
) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay << attempt
		log.Warn("completion call failed, retrying", map[string]interface{}{
			"stage":      stage,
			"attempt":    attempt + 1,
			"maxRetries": maxRetries,
			"retryIn":    delay.String(),
			"error":      err.Error(),
		})
		metrics.CompletionRetries.WithLabelValues(stage).Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", lastErr
}
