// Package gemini summarizes evaluations with the Google GenAI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/okian/evalmatrix/internal/domain/analysis"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/okian/evalmatrix/pkg/logger"
)

const (
	// DefaultModel is used when no model name is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultSystemPrompt asks for the analysis document shape.
	DefaultSystemPrompt = "You are a performance coach. Summarize findings, risks and a 90-day plan. " +
		"Return JSON with summary, strengths, risks, focus, actions, and add a narrative field with a " +
		"short, conversational and human paragraph (no bullet points) about what is going on with the person. " +
		"Use clear, warm, non-technical language."

	defaultTemperature = 0.2
	defaultTimeout     = 60 * time.Second
	emptyDocument      = "{}"
)

// ErrMissingAPIKey is returned when no api key is configured.
var ErrMissingAPIKey = errors.New("gemini api key is required")

// ContentGenerator is the slice of the GenAI models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator sends evaluations to Gemini and returns the raw JSON reply.
type Generator struct {
	models       ContentGenerator
	modelName    string
	systemPrompt string
	timeout      time.Duration
	log          logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSystemPrompt overrides DefaultSystemPrompt.
func WithSystemPrompt(p string) Option {
	return func(g *Generator) {
		if p = strings.TrimSpace(p); p != "" {
			g.systemPrompt = p
		}
	}
}

// WithTimeout bounds each Analyze call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, opts ...Option) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return NewWithModels(client.Models, model, opts...), nil
}

// NewWithModels builds a Generator on an existing models service.
func NewWithModels(models ContentGenerator, model string, opts ...Option) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	g := &Generator{
		models:       models,
		modelName:    model,
		systemPrompt: DefaultSystemPrompt,
		timeout:      defaultTimeout,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the configured Gemini model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// Summarize sends the evaluation document and returns the model's text.
// An empty reply yields "{}". The call is bounded by the generator timeout.
func (g *Generator) Summarize(ctx context.Context, evaluation []byte) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload := evaluation
	var prompt strings.Builder
	if json.Valid(evaluation) {
		if b, err := json.MarshalIndent(json.RawMessage(evaluation), "", "  "); err == nil {
			payload = b
		}
	}
	prompt.WriteString("Evaluation (JSON):\n")
	prompt.Write(payload)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(defaultTemperature)),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt.String()), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				if text := strings.TrimSpace(part.Text); text != "" {
					builder.WriteString(text)
				}
			}
			if builder.Len() > 0 {
				break
			}
		}
	}

	if builder.Len() == 0 {
		return emptyDocument, nil
	}
	return builder.String(), nil
}

// Analyze summarizes snap and normalizes the reply into an Analysis. Errors
// are reported as analysis.ErrTimeout or *analysis.ServiceError.
func (g *Generator) Analyze(ctx context.Context, snap types.Snapshot) (types.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(snap)
	if err != nil {
		return types.Analysis{}, analysis.NewServiceError(0, err.Error())
	}

	start := time.Now()
	text, err := g.Summarize(ctx, body)
	if err != nil {
		return types.Analysis{}, g.classify(ctx, err, start)
	}

	result := analysis.Normalize([]byte(text))
	result.Model = g.modelName
	g.log.Debug(ctx, "analysis generated",
		logger.String("model", g.modelName),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// ServiceStatus maps a Summarize error onto an HTTP status for proxy replies.
func ServiceStatus(err error) int {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return apiErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (g *Generator) classify(ctx context.Context, err error, start time.Time) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		g.log.Warn(ctx, "analysis timed out", logger.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("%w after %s", analysis.ErrTimeout, g.timeout)
	}

	g.log.Error(ctx, "analysis generation failed", logger.Error(err))
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return analysis.NewServiceError(apiErr.Code, apiErr.Message)
	}
	return analysis.NewServiceError(0, err.Error())
}
