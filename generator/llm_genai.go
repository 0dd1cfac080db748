package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GenAILLM implements LLMClient on Google's Gemini API.
type GenAILLM struct {
	Model  string
	apiKey string
}

func NewGenAILLMFromConfig(cfg *LLMSettings) (*GenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GenAILLM{Model: model, apiKey: cfg.APIKey}, nil
}

func (g *GenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingCredentials
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	var contents []*genai.Content
	for _, h := range prompt.History {
		role := genai.Role(genai.RoleUser)
		if h.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(h.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt.User, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if prompt.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if prompt.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(prompt.Temperature))
	}

	resp, err := client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) &&
			(apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %v", ErrMissingCredentials, err)
		}
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("genai: empty response")
	}
	return text, nil
}
