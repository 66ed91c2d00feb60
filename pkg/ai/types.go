package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// EvaluationInput carries the user-submitted artefacts to grade.
type EvaluationInput struct {
	Description string
	CodeSnippet string
}

// Analysis is the paid portion of an evaluation report.
type Analysis struct {
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	SecurityRisks  []string `json:"security_risks"`
	RefactoredCode string   `json:"refactored_code"`
}

// Evaluation is the structured review produced by the model. Raw holds the
// full parsed object exactly as the model returned it.
type Evaluation struct {
	Score    int             `json:"score"`
	Summary  string          `json:"summary"`
	Analysis Analysis        `json:"analysis"`
	Raw      json.RawMessage `json:"-"`
}

// Evaluator describes a model capable of reviewing a code snippet.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (Evaluation, error)
}

// ErrEmptyGeneration indicates the model returned no text to parse.
var ErrEmptyGeneration = errors.New("model returned no generated text")

// ErrMalformedResponse indicates the generated text was not the expected JSON
// document, either syntactically or against the report schema.
var ErrMalformedResponse = errors.New("model response is not a valid report")

// UpstreamError reports a non-success response from the model endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model endpoint returned status %d: %s", e.Status, e.Body)
}
