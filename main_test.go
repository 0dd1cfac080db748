package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prowriter/config"
	"prowriter/generator"
)

// run executes the root command against a mock-provider config backed by a
// SQLite file in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PROWRITER_CONFIG", "")
	t.Setenv("PROWRITER_DB", "")

	cfgPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		body := "database_path: " + filepath.Join(dir, "prowriter.db") + "\n" +
			"log_level: error\n" +
			"llm:\n  provider: mock\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	}

	writeFlags.out, writeFlags.html, writeFlags.keep = "", false, false
	metadataFlags.regenerate, metadataFlags.out = false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildLLM(t *testing.T) {
	llm, err := buildLLM(config.LLMConfig{Provider: config.ProviderMock})
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	llm, err = buildLLM(config.LLMConfig{Provider: config.ProviderOpenAI})
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAILLM{}, llm)

	_, err = buildLLM(config.LLMConfig{Provider: config.ProviderDeepSeek})
	assert.ErrorContains(t, err, "base_url")

	_, err = buildLLM(config.LLMConfig{Provider: "bedrock"})
	assert.Error(t, err)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger("loud", false)
	assert.ErrorContains(t, err, "log_level")

	l, err := newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1), "verbose forces debug")
}

func TestMethodsCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "methods")
	require.NoError(t, err)
	assert.Contains(t, out, "swot")
	assert.Contains(t, out, "Category")
}

func TestWriteThenMetadata(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "write", "Remote work")
	require.NoError(t, err)
	assert.Contains(t, out, "# Remote work")
	assert.Contains(t, out, "## Sample section 1")
	assert.Contains(t, out, "## Sample section 10")

	out, err = run(t, dir, "drafts")
	require.NoError(t, err)
	assert.Contains(t, out, "Remote work")
	assert.Contains(t, out, "10/10")

	out, err = run(t, dir, "metadata", "remote WORK")
	require.NoError(t, err)
	assert.Contains(t, out, "Slug:\nsample-article")
	assert.Contains(t, out, "1. A sample headline")

	// Saved metadata is printed without another model call.
	again, err := run(t, dir, "metadata", "Remote work")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestMetadataUnknownTopic(t *testing.T) {
	_, err := run(t, t.TempDir(), "metadata", "nothing here")
	assert.ErrorContains(t, err, "no draft for topic")
}

func TestPublishWithoutEndpoint(t *testing.T) {
	_, err := run(t, t.TempDir(), "publish", "anything")
	assert.ErrorContains(t, err, "set publish.endpoint")
}
