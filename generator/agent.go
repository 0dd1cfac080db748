package generator

import (
	"context"
	"errors"
	"time"

	"prowriter/article"
)

// Agent generates outlines, section prose and publishing metadata.
type Agent struct {
	llm         LLMClient
	style       Style
	outlineSize int
	timeout     time.Duration
}

// AgentOption customizes an Agent.
type AgentOption func(*Agent)

// WithStyle sets language and persona.
func WithStyle(s Style) AgentOption {
	return func(a *Agent) {
		if s.Language != "" {
			a.style.Language = s.Language
		}
		if s.Persona != "" {
			a.style.Persona = s.Persona
		}
	}
}

// WithOutlineSize sets how many titles the outline prompt asks for.
func WithOutlineSize(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.outlineSize = n
		}
	}
}

// WithTimeout bounds every model call.
func WithTimeout(d time.Duration) AgentOption {
	return func(a *Agent) { a.timeout = d }
}

func NewAgent(llm LLMClient, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{llm: llm, style: DefaultStyle(), outlineSize: article.DefaultOutlineSize}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Agent) complete(ctx context.Context, p Prompt) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.llm.Complete(ctx, p)
}

// GenerateOutline returns the titles the model gave, without padding.
func (a *Agent) GenerateOutline(ctx context.Context, topic string) ([]string, error) {
	raw, err := a.complete(ctx, BuildOutlinePrompt(a.style, topic, a.outlineSize))
	if err != nil {
		return nil, err
	}
	return ParseOutline(raw), nil
}

// GenerateSection writes one section.
func (a *Agent) GenerateSection(ctx context.Context, topic, title, instruction string) (string, error) {
	raw, err := a.complete(ctx, BuildSectionPrompt(a.style, topic, title, instruction))
	if err != nil {
		return "", err
	}
	return CleanSection(raw)
}

// GenerateMetadata makes one request for all publishing fields, with no retry.
func (a *Agent) GenerateMetadata(ctx context.Context, req MetadataRequest) (article.Metadata, error) {
	raw, err := a.complete(ctx, BuildMetadataPrompt(a.style, req))
	if err != nil {
		return article.Metadata{}, err
	}
	return ParseMetadata(raw)
}
