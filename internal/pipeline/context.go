package pipeline

// Context keys under which stage results accumulate during a run.
// Downstream stages and the verification pass address earlier results
// by these names.
const (
	KeyIntake          = "intake"
	KeyFraudAnalysis   = "fraud_analysis"
	KeyCompliance      = "compliance"
	KeySeverity        = "severity_details"
	KeyRecommendations = "recommendations"
	KeySummary         = "executive_summary"
)

// RunContext is the append-only accumulation of stage results for one
// analysis run. It is written by the coordinator only; concurrent
// stages receive it read-only and their results are recorded after the
// join point.
type RunContext struct {
	results map[string]*StageResult
	order   []string
}

func NewRunContext() *RunContext {
	return &RunContext{results: map[string]*StageResult{}}
}

// Record stores a stage result under key. Re-recording a key is a
// coordinator bug; the first value is kept.
func (c *RunContext) Record(key string, result *StageResult) {
	if _, exists := c.results[key]; exists {
		return
	}
	c.results[key] = result
	c.order = append(c.order, key)
}

func (c *RunContext) Get(key string) (*StageResult, bool) {
	r, ok := c.results[key]
	return r, ok
}

// Keys returns the recorded keys in insertion order.
func (c *RunContext) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Payload returns the payload recorded under key, or an empty map when
// the stage has not run. Callers can always index the result.
func (c *RunContext) Payload(key string) map[string]interface{} {
	if r, ok := c.results[key]; ok && r.Payload != nil {
		return r.Payload
	}
	return map[string]interface{}{}
}
