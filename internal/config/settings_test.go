package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CSmithy89/hyyve/pkg/client/claude"
)

// isolate points the settings search at an empty temporary tree.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func writeSettings(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadSettingsDefaults(t *testing.T) {
	isolate(t)

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultSettings(), s)
	assert.Equal(t, claude.DefaultModel, s.LLM.Model)
	assert.Equal(t, 4096, s.LLM.MaxTokens)
	assert.Equal(t, 60*time.Second, s.LLM.Timeout)
	assert.Equal(t, 3, s.LLM.MaxRetries)
	assert.Nil(t, s.LLM.Temperature)
}

func TestLoadSettingsFromFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeSettings(t, path, `
app:
  environment: staging
  agent: morgan
llm:
  model: claude-haiku-4-20250514
  max_tokens: 1024
  temperature: 0
  timeout: 30s
  max_retries: 1
log:
  level: debug
`)

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "Hyyve Agent Service", s.App.Name)
	assert.Equal(t, EnvStaging, s.App.Environment)
	assert.Equal(t, "morgan", s.App.Agent)
	assert.Equal(t, claude.ModelHaiku4, s.LLM.Model)
	assert.Equal(t, 1024, s.LLM.MaxTokens)
	require.NotNil(t, s.LLM.Temperature)
	assert.Equal(t, 0.0, *s.LLM.Temperature)
	assert.Equal(t, 30*time.Second, s.LLM.Timeout)
	assert.Equal(t, 1, s.LLM.MaxRetries)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestLoadSettingsSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeSettings(t, filepath.Join(dir, ".hyyve", "settings.yaml"), "llm:\n  model: claude-opus-4-20250514\n")

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, claude.ModelOpus4, s.LLM.Model)
}

func TestLoadSettingsEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "settings.yaml")
	writeSettings(t, path, "llm:\n  model: claude-haiku-4-20250514\n  max_tokens: 1024\n")

	t.Setenv("HYYVE_MODEL", claude.ModelOpus4)
	t.Setenv("HYYVE_TEMPERATURE", "0.7")
	t.Setenv("HYYVE_TIMEOUT", "5s")
	t.Setenv("HYYVE_LOG_LEVEL", "warn")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, claude.ModelOpus4, s.LLM.Model)
	assert.Equal(t, 1024, s.LLM.MaxTokens)
	require.NotNil(t, s.LLM.Temperature)
	assert.Equal(t, 0.7, *s.LLM.Temperature)
	assert.Equal(t, 5*time.Second, s.LLM.Timeout)
	assert.Equal(t, "warn", s.Log.Level)
}

func TestLoadSettingsFileTemperature(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "settings.yaml")
	writeSettings(t, path, "llm:\n  temperature: 0.7\n")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.NotNil(t, s.LLM.Temperature)
	assert.Equal(t, 0.7, *s.LLM.Temperature)

	t.Setenv("HYYVE_TEMPERATURE", "0.2")
	s, err = LoadSettings(path)
	require.NoError(t, err)
	require.NotNil(t, s.LLM.Temperature)
	assert.Equal(t, 0.2, *s.LLM.Temperature)
}

func TestLoadSettingsErrors(t *testing.T) {
	dir := isolate(t)

	_, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	writeSettings(t, bad, "llm: [unclosed")
	_, err = LoadSettings(bad)
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	writeSettings(t, unknown, "llm:\n  model: gpt-4\n")
	_, err = LoadSettings(unknown)
	var unknownModel *claude.UnknownModelError
	assert.ErrorAs(t, err, &unknownModel)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"environment", func(s *Settings) { s.App.Environment = "qa" }},
		{"max tokens above limit", func(s *Settings) { s.LLM.MaxTokens = 9000 }},
		{"negative max tokens", func(s *Settings) { s.LLM.MaxTokens = -1 }},
		{"temperature", func(s *Settings) { s.LLM.Temperature = claude.Float(2) }},
		{"timeout", func(s *Settings) { s.LLM.Timeout = 0 }},
		{"retries", func(s *Settings) { s.LLM.MaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := GetDefaultSettings()
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
	assert.NoError(t, ValidateSettings(GetDefaultSettings()))
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "settings.yaml")

	want := GetDefaultSettings()
	want.LLM.Model = claude.ModelHaiku4
	want.LLM.Temperature = claude.Float(0.3)
	require.NoError(t, SaveSettings(path, want))

	got, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClientOptions(t *testing.T) {
	s := GetDefaultSettings()
	assert.Len(t, s.LLM.ClientOptions(), 2)
	s.LLM.BaseURL = "http://localhost:8080"
	assert.Len(t, s.LLM.ClientOptions(), 3)
}
