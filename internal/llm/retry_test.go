package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wbs-analyzer/internal/common/logger"
)

func TestCallWithRetry_SucceedsFirstAttempt(t *testing.T) {
	log := logger.NewTestLogger(t)
	calls := 0

	result, err := CallWithRetry(context.Background(), log, "IntakeAgent", 3, time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		return `{"ok":true}`, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, result)
	assert.Equal(t, 1, calls)
}

func TestCallWithRetry_RecoversAfterFailures(t *testing.T) {
	log := logger.NewTestLogger(t)
	calls := 0

	result, err := CallWithRetry(context.Background(), log, "AnalysisAgent", 3, time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("upstream timeout")
		}
		return "recovered", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

func TestCallWithRetry_ExhaustsAttempts(t *testing.T) {
	log := logger.NewTestLogger(t)
	calls := 0
	lastErr := errors.New("persistent failure")

	_, err := CallWithRetry(context.Background(), log, "SeverityAgent", 3, time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		return "", lastErr
	})

	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls)
}

func TestCallWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := CallWithRetry(ctx, log, "ComplianceAgent", 3, time.Hour, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("failure before cancel")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
