package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbs-analyzer/internal/common/config"
	stderrors "wbs-analyzer/internal/common/errors"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/llm"
)

// scriptedCompleter returns canned responses. Responses are matched by
// a substring of the system prompt, so one instance can serve every
// stage of a pipeline run.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []llm.Request
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		responses: map[string]string{},
		errs:      map[string]error{},
	}
}

func (s *scriptedCompleter) respond(systemContains, response string) {
	s.responses[systemContains] = response
}

func (s *scriptedCompleter) fail(systemContains string, err error) {
	s.errs[systemContains] = err
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)

	for key, err := range s.errs {
		if strings.Contains(req.System, key) {
			return "", err
		}
	}
	for key, response := range s.responses {
		if strings.Contains(req.System, key) {
			return response, nil
		}
	}
	return "{}", nil
}

func (s *scriptedCompleter) callCount(systemContains string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.calls {
		if strings.Contains(req.System, systemContains) {
			n++
		}
	}
	return n
}

func testRunner(t *testing.T, completer llm.Completer) *Runner {
	t.Helper()
	return NewRunner(completer, logger.NewTestLogger(t), config.LLMConfig{
		MaxRetries:  3,
		BaseDelayMS: 1,
		Temperature: 0.1,
		MaxTokens:   2048,
	})
}

// sequenceCompleter replays responses in order regardless of prompt.
type sequenceCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (s *sequenceCompleter) Complete(_ context.Context, _ llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "{}", nil
}

func TestRunner_RetriesMalformedOutput(t *testing.T) {
	completer := &sequenceCompleter{
		responses: []string{"not json at all", `{"fraud_score": 0.4}`},
	}
	runner := testRunner(t, completer)

	payload, err := runner.invoke(context.Background(), "AnalysisAgent", "system", "user", "")

	require.NoError(t, err)
	assert.Equal(t, 0.4, payload["fraud_score"])
	assert.Equal(t, 2, completer.calls)
}

func TestRunner_ExhaustedRetriesReturnStageFailure(t *testing.T) {
	upstream := errors.New("connection reset")
	completer := &sequenceCompleter{
		errs: []error{upstream, upstream, upstream},
	}
	runner := testRunner(t, completer)

	_, err := runner.invoke(context.Background(), "IntakeAgent", "system", "user", "")

	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeStageFailed, stdErr.Code)
	assert.Equal(t, 3, completer.calls)
}

func TestRunner_SchemaViolationDoesNotFail(t *testing.T) {
	completer := &sequenceCompleter{
		responses: []string{`{"fraud_score": 7.5}`},
	}
	runner := testRunner(t, completer)

	schema := `{"type": "object", "properties": {"fraud_score": {"type": "number", "maximum": 1}}}`
	payload, err := runner.invoke(context.Background(), "AnalysisAgent", "system", "user", schema)

	require.NoError(t, err)
	assert.Equal(t, 7.5, payload["fraud_score"])
	assert.Equal(t, 1, completer.calls)
}
