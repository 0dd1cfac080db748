package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// It also serves OpenAI-compatible providers such as DeepSeek through BaseURL.
type OpenAILLM struct {
	Model  string
	Opts   []option.RequestOption
	hasKey bool
}

// NewOpenAILLMFromConfig builds the client. A missing api key is not an error here;
// every call then fails with ErrMissingCredentials.
func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAILLM{Model: cfg.Model, Opts: opts, hasKey: cfg.APIKey != ""}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if !o.hasKey {
		return "", ErrMissingCredentials
	}
	client := openai.NewClient(o.Opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	}
	if prompt.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if prompt.Temperature > 0 {
		params.Temperature = openai.Float(prompt.Temperature)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %v", ErrMissingCredentials, err)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
