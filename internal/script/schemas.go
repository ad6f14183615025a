package script

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/castforge-labs/castforge-core/internal/faults"
)

// The analysis and insights stages hand structured data across the
// text-generation boundary, so their shape is pinned by schema before any
// of it is trusted.
const analysisSchema = `{
  "type": "object",
  "required": ["key_facts", "main_arguments", "stakeholders", "controversy_points", "regulatory_hooks"],
  "properties": {
    "key_facts":          {"type": "array", "items": {"type": "string"}},
    "main_arguments":     {"type": "array", "items": {"type": "string"}},
    "stakeholders":       {"type": "array", "items": {"type": "string"}},
    "controversy_points": {"type": "array", "items": {"type": "string"}},
    "regulatory_hooks":   {"type": "array", "items": {"type": "string"}}
  }
}`

const insightsSchema = `{
  "type": "object",
  "properties": {
    "utilities":        {"type": "array", "items": {"type": "string"}},
    "consumers":        {"type": "array", "items": {"type": "string"}},
    "startups":         {"type": "array", "items": {"type": "string"}},
    "regulatory":       {"type": "array", "items": {"type": "string"}},
    "expert_questions": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	compiledAnalysisSchema = jsonschema.MustCompileString("analysis.json", analysisSchema)
	compiledInsightsSchema = jsonschema.MustCompileString("insights.json", insightsSchema)
)

// decodeStageJSON extracts the JSON object from a completion, validates it
// against the stage schema, and unmarshals it into out. Completions often
// wrap JSON in prose or code fences; everything outside the outermost
// braces is discarded.
func decodeStageJSON(stage string, schema *jsonschema.Schema, completion string, out any) error {
	raw := extractJSONObject(completion)
	if raw == "" {
		return faults.Upstream(stage+" stage returned no JSON object", nil)
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return faults.Upstream(stage+" stage returned malformed JSON", err)
	}
	if err := schema.Validate(doc); err != nil {
		return faults.Upstream(stage+" stage output failed schema validation", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return faults.Upstream(stage+" stage output did not decode", err)
	}
	return nil
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
