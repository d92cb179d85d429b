// Package pipeline defines the shared data model for a multi-stage
// report analysis run: the stage result envelope, the accumulated run
// context and the final analysis record.
package pipeline

import "encoding/json"

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// StageResult is the envelope every stage analyzer returns. Payload
// holds the stage-specific fields; on failure it carries the stage's
// safe defaults so downstream consumers never see a missing field.
type StageResult struct {
	Agent   string
	Status  Status
	Error   string
	Payload map[string]interface{}
}

func NewSuccessResult(agent string, payload map[string]interface{}) *StageResult {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &StageResult{Agent: agent, Status: StatusSuccess, Payload: payload}
}

// NewErrorResult builds a failed envelope carrying the stage's safe
// defaults as payload.
func NewErrorResult(agent string, err error, defaults map[string]interface{}) *StageResult {
	if defaults == nil {
		defaults = map[string]interface{}{}
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &StageResult{Agent: agent, Status: StatusError, Error: msg, Payload: defaults}
}

func (r *StageResult) Failed() bool {
	return r == nil || r.Status == StatusError
}

// Get reads a payload field, returning nil when absent.
func (r *StageResult) Get(key string) interface{} {
	if r == nil || r.Payload == nil {
		return nil
	}
	return r.Payload[key]
}

// MarshalJSON flattens the envelope: payload fields appear at the top
// level next to agent, status and error. Envelope keys win on clash.
func (r *StageResult) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Payload)+3)
	for k, v := range r.Payload {
		flat[k] = v
	}
	flat["agent"] = r.Agent
	flat["status"] = string(r.Status)
	if r.Error != "" {
		flat["error"] = r.Error
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON for stored analysis records.
func (r *StageResult) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if agent, ok := flat["agent"].(string); ok {
		r.Agent = agent
	}
	if status, ok := flat["status"].(string); ok {
		r.Status = Status(status)
	}
	if errMsg, ok := flat["error"].(string); ok {
		r.Error = errMsg
	}
	delete(flat, "agent")
	delete(flat, "status")
	delete(flat, "error")
	r.Payload = flat
	return nil
}
