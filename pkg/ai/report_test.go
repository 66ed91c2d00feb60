package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleReport = `{
  "score": 72,
  "summary": "Solid structure with a few rough edges.",
  "analysis": {
    "strengths": ["clear naming", "small functions"],
    "weaknesses": ["no input validation"],
    "security_risks": ["unsanitized user input reaches the query"],
    "refactored_code": "package main"
  }
}`

func TestParseEvaluationAcceptsPlainJSON(t *testing.T) {
	evaluation, err := parseEvaluation(sampleReport)
	require.NoError(t, err)
	require.Equal(t, 72, evaluation.Score)
	require.Equal(t, "Solid structure with a few rough edges.", evaluation.Summary)
	require.Equal(t, []string{"clear naming", "small functions"}, evaluation.Analysis.Strengths)
	require.Equal(t, "package main", evaluation.Analysis.RefactoredCode)
	require.NotEmpty(t, evaluation.Raw)
}

func TestParseEvaluationStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + sampleReport + "\n```"
	plain, err := parseEvaluation(sampleReport)
	require.NoError(t, err)

	wrapped, err := parseEvaluation(fenced)
	require.NoError(t, err)
	require.Equal(t, plain.Score, wrapped.Score)
	require.Equal(t, plain.Summary, wrapped.Summary)
	require.Equal(t, plain.Analysis, wrapped.Analysis)
}

func TestParseEvaluationStripsUntaggedFences(t *testing.T) {
	fenced := "```\n" + sampleReport + "\n```"
	evaluation, err := parseEvaluation(fenced)
	require.NoError(t, err)
	require.Equal(t, 72, evaluation.Score)
}

func TestParseEvaluationRejectsProse(t *testing.T) {
	_, err := parseEvaluation("Here is your review: the code looks fine.")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestParseEvaluationRejectsSchemaViolation(t *testing.T) {
	// Well-formed JSON with the wrong field names must not be accepted.
	_, err := parseEvaluation(`{"points": 90, "verdict": "good"}`)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedResponse))

	_, err = parseEvaluation(`{"score": "high", "summary": "ok", "analysis": {"strengths": [], "weaknesses": [], "security_risks": [], "refactored_code": ""}}`)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestParseEvaluationEmptyAfterStripping(t *testing.T) {
	_, err := parseEvaluation("```json\n```")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEmptyGeneration))
}

func TestStripCodeFencesLeavesPlainTextAlone(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}\n"))
}
