// Package validation checks and repairs model-produced payloads.
// Schema violations are logged and repaired, never surfaced as errors;
// a stage that produced parseable JSON always yields a usable payload.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Result holds the outcome of a schema check.
type Result struct {
	Valid  bool
	Errors []string
}

// CheckSchema validates a parsed payload against a JSON schema document.
// A schema that fails to compile is reported as a single error so the
// caller can log it without distinguishing the two cases.
func CheckSchema(payload map[string]interface{}, schemaJSON string) Result {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(payload)

	res, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return Result{Valid: false, Errors: []string{fmt.Sprintf("schema validation failed: %v", err)}}
	}

	if res.Valid() {
		return Result{Valid: true}
	}

	errs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return Result{Valid: false, Errors: errs}
}
