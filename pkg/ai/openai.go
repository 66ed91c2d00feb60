package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartcode",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartcode",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI evaluator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	tracer := otel.Tracer("github.com/AntiAnoop/smartcode/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIEvaluator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Evaluate sends the review request to OpenAI and parses the response into a
// structured report. It performs exactly one model call and no retries.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, input EvaluationInput) (Evaluation, error) {
	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: reviewerSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildReviewPrompt(input),
			},
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Evaluation{}, &UpstreamError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return Evaluation{}, fmt.Errorf("openai evaluate: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(ErrEmptyGeneration)
		span.SetStatus(codes.Error, ErrEmptyGeneration.Error())
		return Evaluation{}, ErrEmptyGeneration
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	evaluation, err := parseEvaluation(content)
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn().Err(err).Str("model", e.cfg.Model).Msg("model returned unusable report")
		return Evaluation{}, err
	}

	return evaluation, nil
}

func reviewerSystemPrompt() string {
	return "You are a senior code reviewer. Analyze the provided code based on the user's description. " +
		"You MUST return a single valid JSON object strictly adhering to this schema: " +
		`{"score": number (0-100), "summary": string (2-3 sentences), "analysis": ` +
		`{"strengths": [string], "weaknesses": [string], "security_risks": [string], "refactored_code": string}}. ` +
		"Return ONLY the JSON. No markdown formatting, no surrounding prose."
}

func buildReviewPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("Task Description:\n")
	builder.WriteString(input.Description)
	builder.WriteString("\n\nCode Snippet:\n")
	builder.WriteString(input.CodeSnippet)
	builder.WriteString("\n\nReturn JSON only.")
	return builder.String()
}
