// Package agents implements the stage analyzers of the report analysis
// pipeline and the coordinator that sequences them. Every analyzer
// follows the same pattern: render a fixed instruction template plus a
// condensed view of earlier results, make one retried completion call,
// parse strict JSON and repair the payload before handing back an
// envelope.
package agents

import (
	"context"
	"encoding/json"
	"time"

	"wbs-analyzer/internal/common/config"
	stderrors "wbs-analyzer/internal/common/errors"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/common/metrics"
	"wbs-analyzer/internal/llm"
	"wbs-analyzer/internal/validation"
)

// Runner executes the shared stage pattern on behalf of every analyzer.
type Runner struct {
	completer   llm.Completer
	log         logger.Logger
	maxRetries  int
	baseDelay   time.Duration
	temperature float32
	maxTokens   int
}

func NewRunner(completer llm.Completer, log logger.Logger, cfg config.LLMConfig) *Runner {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}
	baseDelay := time.Duration(cfg.BaseDelayMS) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Runner{
		completer:   completer,
		log:         log,
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// invoke runs one stage call at the default temperature.
func (r *Runner) invoke(ctx context.Context, agent, system, user, schema string) (map[string]interface{}, error) {
	return r.invokeAt(ctx, agent, system, user, schema, r.temperature)
}

// invokeAt runs one stage call end to end. Unparseable JSON counts as a
// failed attempt and is retried alongside transport errors; schema
// violations on parsed output are logged only, the caller's repair step
// fixes them.
func (r *Runner) invokeAt(ctx context.Context, agent, system, user, schema string, temperature float32) (map[string]interface{}, error) {
	start := time.Now()
	metrics.StageJobsActive.WithLabelValues(agent).Inc()
	defer metrics.StageJobsActive.WithLabelValues(agent).Dec()

	var payload map[string]interface{}
	_, err := llm.CallWithRetry(ctx, r.log, agent, r.maxRetries, r.baseDelay, func(ctx context.Context) (string, error) {
		content, err := r.completer.Complete(ctx, llm.Request{
			System:      system,
			User:        user,
			Temperature: temperature,
			MaxTokens:   r.maxTokens,
		})
		if err != nil {
			return "", err
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return "", stderrors.NewLLMMalformedOutputError(agent, err)
		}
		payload = parsed
		return content, nil
	})
	if err != nil {
		metrics.StageJobsFailed.WithLabelValues(agent, string(stderrors.ErrCodeStageFailed)).Inc()
		r.log.Error("stage analyzer failed after exhausted retries", map[string]interface{}{
			"agent": agent,
			"error": err.Error(),
		})
		return nil, stderrors.NewStageFailedError(agent, err)
	}

	if schema != "" {
		if res := validation.CheckSchema(payload, schema); !res.Valid {
			r.log.Warn("stage output failed schema check, repairing", map[string]interface{}{
				"agent":      agent,
				"violations": res.Errors,
			})
		}
	}

	metrics.StageJobsCompleted.WithLabelValues(agent).Inc()
	metrics.StageJobDuration.WithLabelValues(agent).Observe(time.Since(start).Seconds())
	return payload, nil
}

// condense marshals an earlier stage payload for inclusion in a prompt,
// bounded to maxChars so stacked results never overflow the context
// window.
func condense(payload map[string]interface{}, maxChars int) string {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "{}"
	}
	text := string(data)
	if len(text) > maxChars {
		return text[:maxChars] + "\n... [truncated]"
	}
	return text
}
