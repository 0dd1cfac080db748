package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"prowriter/article"
	"prowriter/generator"
)

// DefaultPath is read when no path is given and PROWRITER_CONFIG is unset.
const DefaultPath = "config/config.yaml"

// Config gathers server, storage, model and publishing settings.
type Config struct {
	ServerAddr   string        `yaml:"server_addr"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	DatabasePath string        `yaml:"database_path"`
	LogLevel     string        `yaml:"log_level"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	LLM          LLMConfig     `yaml:"llm"`
	Style        StyleConfig   `yaml:"style"`
	Wizard       WizardConfig  `yaml:"wizard"`
	Publish      PublishConfig `yaml:"publish"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type StyleConfig struct {
	Language string `yaml:"language"`
	Persona  string `yaml:"persona"`
}

type WizardConfig struct {
	OutlineSize   int           `yaml:"outline_size"`
	AutosaveDelay time.Duration `yaml:"autosave_delay"`
}

// PublishConfig points at the external publishing endpoint. An empty endpoint disables publishing.
type PublishConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
}

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderMock     = "mock"
)

func Default() Config {
	return Config{
		ServerAddr: ":8080",
		SessionTTL: 2 * time.Hour,
		LogLevel:   "info",
		CacheTTL:   time.Minute,
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Timeout:  2 * time.Minute,
		},
		Wizard: WizardConfig{
			OutlineSize:   article.DefaultOutlineSize,
			AutosaveDelay: 2 * time.Second,
		},
		Publish: PublishConfig{Timeout: 60 * time.Second},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("PROWRITER_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PROWRITER_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("PROWRITER_ADDR"); v != "" {
		c.ServerAddr = v
	}
	if v := os.Getenv("PROWRITER_PUBLISH_TOKEN"); v != "" && c.Publish.Token == "" {
		c.Publish.Token = v
	}
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	case ProviderDeepSeek:
		c.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate rejects values no component can work with. A missing API key is
// allowed here; it surfaces as a configuration error on the first model call.
func (c Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderMock:
	case ProviderDeepSeek:
		// DeepSeek is reached through its OpenAI-compatible endpoint.
		if c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("llm provider deepseek requires base_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm provider %q not supported", c.LLM.Provider))
	}
	if c.Wizard.OutlineSize <= 0 {
		errs = append(errs, fmt.Errorf("wizard.outline_size must be positive, got %d", c.Wizard.OutlineSize))
	}
	if c.Wizard.AutosaveDelay <= 0 {
		errs = append(errs, fmt.Errorf("wizard.autosave_delay must be positive, got %s", c.Wizard.AutosaveDelay))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL))
	}
	if c.Publish.Endpoint != "" && !strings.HasPrefix(c.Publish.Endpoint, "http") {
		errs = append(errs, fmt.Errorf("publish.endpoint must be an http(s) URL, got %q", c.Publish.Endpoint))
	}
	return errors.Join(errs...)
}

// Settings converts the model section for generator constructors.
func (l LLMConfig) Settings() *generator.LLMSettings {
	return &generator.LLMSettings{
		Provider: l.Provider,
		Model:    l.Model,
		APIKey:   l.APIKey,
		BaseURL:  l.BaseURL,
		Timeout:  l.Timeout,
	}
}

func (s StyleConfig) Style() generator.Style {
	return generator.Style{Language: s.Language, Persona: s.Persona}
}
