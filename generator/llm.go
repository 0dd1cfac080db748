package generator

import (
	"context"
	"errors"
	"time"
)

// ErrMissingCredentials means the API key is missing or was rejected. Retrying will not help.
var ErrMissingCredentials = errors.New("llm credentials missing or rejected")

// LLMClient is a chat-completion backend.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the common configuration of every backend.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}
