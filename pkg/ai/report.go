package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// reportSchema is the contract the model is instructed to follow. Responses
// that parse but violate it are treated the same as unparseable ones.
const reportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["score", "summary", "analysis"],
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "summary": {"type": "string", "minLength": 1},
    "analysis": {
      "type": "object",
      "required": ["strengths", "weaknesses", "security_risks", "refactored_code"],
      "properties": {
        "strengths": {"type": "array", "items": {"type": "string"}},
        "weaknesses": {"type": "array", "items": {"type": "string"}},
        "security_risks": {"type": "array", "items": {"type": "string"}},
        "refactored_code": {"type": "string"}
      }
    }
  }
}`

var compiledReportSchema = mustCompileReportSchema()

func mustCompileReportSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("report.schema.json", strings.NewReader(reportSchema)); err != nil {
		panic(fmt.Sprintf("add report schema resource: %v", err))
	}
	return compiler.MustCompile("report.schema.json")
}

// parseEvaluation strips any markdown code fences from the generated text,
// parses it as JSON, and validates it against the report schema.
func parseEvaluation(content string) (Evaluation, error) {
	cleaned := stripCodeFences(content)
	if cleaned == "" {
		return Evaluation{}, ErrEmptyGeneration
	}

	var document interface{}
	if err := json.Unmarshal([]byte(cleaned), &document); err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := compiledReportSchema.Validate(document); err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var payload struct {
		Score    float64  `json:"score"`
		Summary  string   `json:"summary"`
		Analysis Analysis `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	score := int(math.Round(payload.Score))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Evaluation{
		Score:    score,
		Summary:  payload.Summary,
		Analysis: payload.Analysis,
		Raw:      json.RawMessage(cleaned),
	}, nil
}

// stripCodeFences removes a leading/trailing triple-backtick wrapper,
// optionally tagged "json". Models regularly ignore the no-markdown
// instruction in the prompt.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
