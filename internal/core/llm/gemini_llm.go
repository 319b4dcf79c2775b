package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/markdave123-py/StudyCoach/internal/core"
)

const defaultGeminiModel = "gemini-1.5-flash"

var _ core.CompletionBackend = (*GeminiBackend)(nil)

// GeminiBackend serves completion requests from Google's Gemini API.
type GeminiBackend struct {
	client    *genai.Client
	modelName string
}

func NewGeminiBackend(ctx context.Context, cfg Config) (*GeminiBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" || strings.Contains(model, "/") {
		// OpenRouter style ids are not valid Gemini model names
		model = defaultGeminiModel
	}
	return &GeminiBackend{client: cl, modelName: model}, nil
}

func (g *GeminiBackend) Model() string { return g.modelName }

func (g *GeminiBackend) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiBackend) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		m.SetTemperature(float32(req.Temperature))
	}
	if req.TopP > 0 {
		m.SetTopP(float32(req.TopP))
	}
	if req.Schema != nil {
		m.ResponseMIMEType = "application/json"
		m.ResponseSchema = toGenaiSchema(req.Schema.Definition)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", geminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates returned", core.ErrMalformedReply)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// geminiError surfaces HTTP statuses as *core.ProviderError so they are
// classified the same way as any other provider.
func geminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %v", core.ErrMalformedReply, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &core.ProviderError{StatusCode: gerr.Code, Body: gerr.Message}
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return &core.ProviderError{StatusCode: coded.HTTPCode(), Body: err.Error()}
	}
	return fmt.Errorf("gemini generate: %w", err)
}

// toGenaiSchema converts a JSON-schema style definition into genai.Schema.
// Keywords Gemini does not support are skipped.
func toGenaiSchema(def map[string]any) *genai.Schema {
	s := &genai.Schema{}
	switch def["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	}
	if d, ok := def["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := def["enum"].([]string); ok {
		s.Enum = enum
		s.Format = "enum"
	}
	if req, ok := def["required"].([]string); ok {
		s.Required = req
	}
	if items, ok := def["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if props, ok := def["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(pm)
			}
		}
	}
	return s
}
