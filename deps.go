package main

import (
	"fmt"

	"prowriter/config"
	"prowriter/generator"
	"prowriter/publisher"
	"prowriter/store"
	"prowriter/wizard"
)

// buildLLM picks the model client for the configured provider.
func buildLLM(c config.LLMConfig) (generator.LLMClient, error) {
	settings := c.Settings()
	switch c.Provider {
	case config.ProviderOpenAI:
		if settings.Model == "" {
			settings.Model = "gpt-4o-mini"
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case config.ProviderDeepSeek:
		// DeepSeek speaks the OpenAI protocol at its own base_url.
		if settings.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		if settings.Model == "" {
			settings.Model = "deepseek-chat"
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case config.ProviderGemini:
		return generator.NewGenAILLMFromConfig(settings)
	case config.ProviderMock:
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", c.Provider)
	}
}

func buildAgent(c config.Config) (*generator.Agent, error) {
	llm, err := buildLLM(c.LLM)
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(llm,
		generator.WithStyle(c.Style.Style()),
		generator.WithOutlineSize(c.Wizard.OutlineSize),
		generator.WithTimeout(c.LLM.Timeout),
	)
}

func openStore(c config.Config) (store.Store, *store.CachedCatalog, error) {
	st, err := store.Open(c.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return st, store.NewCachedCatalog(st, c.CacheTTL, nil), nil
}

func wizardOptions(c config.Config) []wizard.Option {
	return []wizard.Option{
		wizard.WithLogger(logger),
		wizard.WithOutlineSize(c.Wizard.OutlineSize),
		wizard.WithAutosave(nil, c.Wizard.AutosaveDelay),
	}
}

// buildPublisher returns nil when no endpoint is configured.
func buildPublisher(c config.Config, st store.Store, cat *store.CachedCatalog) (*publisher.Publisher, error) {
	if c.Publish.Endpoint == "" {
		return nil, nil
	}
	return publisher.New(publisher.Config{
		Endpoint: c.Publish.Endpoint,
		Token:    c.Publish.Token,
		Timeout:  c.Publish.Timeout,
	}, st, cat, nil, logger.Named("publisher"))
}
