package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/CSmithy89/hyyve/pkg/client/claude"
)

// EnvPrefix prefixes every environment override, e.g. HYYVE_MODEL.
const EnvPrefix = "HYYVE_"

const settingsDir = ".hyyve"
const settingsFile = "settings.yaml"

// Environments accepted in app.environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Settings represents the main application settings
type Settings struct {
	App AppSettings `yaml:"app"`
	LLM LLMSettings `yaml:"llm"`
	Log LogSettings `yaml:"log"`
}

// AppSettings identifies the deployment
type AppSettings struct {
	Name        string `yaml:"name" env:"APP_NAME"`
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	// Agent is the persona used when none is chosen explicitly.
	Agent string `yaml:"agent" env:"AGENT"`
}

// LLMSettings contains LLM client configuration. The API key is never read
// from here; the client resolves it from ANTHROPIC_API_KEY.
type LLMSettings struct {
	Model       string        `yaml:"model" env:"MODEL"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature *float64      `yaml:"temperature,omitempty" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries  int           `yaml:"max_retries" env:"MAX_RETRIES"`
	BaseURL     string        `yaml:"base_url,omitempty" env:"BASE_URL"`
}

// LogSettings controls diagnostic output
type LogSettings struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		App: AppSettings{
			Name:        "Hyyve Agent Service",
			Environment: EnvDevelopment,
			Agent:       "bond",
		},
		LLM: LLMSettings{
			Model:      claude.DefaultModel,
			MaxTokens:  claude.DefaultMaxTokens,
			Timeout:    claude.DefaultTimeout,
			MaxRetries: claude.DefaultMaxRetries,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// LoadSettings builds settings from defaults, then the YAML file, then
// HYYVE_* environment variables. An empty configPath searches
// .hyyve/settings.yaml and $HOME/.hyyve/settings.yaml; finding neither is not
// an error.
func LoadSettings(configPath string) (*Settings, error) {
	settings := GetDefaultSettings()

	if configPath == "" {
		configPath = findSettingsFile()
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read settings file")
		}
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, errors.Wrapf(err, "failed to parse settings file %s", configPath)
		}
	}

	if err := applyEnvOverrides(settings); err != nil {
		return nil, err
	}

	applyDefaults(settings)

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings writes settings as YAML, creating parent directories.
func SaveSettings(configPath string, settings *Settings) error {
	if configPath == "" {
		configPath = filepath.Join(settingsDir, settingsFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write settings file")
	}
	return nil
}

// applyEnvOverrides layers HYYVE_* variables over settings. env/v9 descends
// into any non-nil pointer field as if it were a struct, so the temperature
// read from a file is set aside while parsing and restored unless the
// environment supplied one.
func applyEnvOverrides(settings *Settings) error {
	fileTemperature := settings.LLM.Temperature
	settings.LLM.Temperature = nil

	if err := env.ParseWithOptions(settings, env.Options{Prefix: EnvPrefix}); err != nil {
		settings.LLM.Temperature = fileTemperature
		return errors.Wrap(err, "failed to parse environment overrides")
	}
	if settings.LLM.Temperature == nil {
		settings.LLM.Temperature = fileTemperature
	}
	return nil
}

// applyDefaults fills in fields a file explicitly blanked
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.App.Name == "" {
		settings.App.Name = defaults.App.Name
	}
	if settings.App.Environment == "" {
		settings.App.Environment = defaults.App.Environment
	}
	if settings.App.Agent == "" {
		settings.App.Agent = defaults.App.Agent
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = defaults.LLM.Model
	}
	if settings.LLM.MaxTokens == 0 {
		settings.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if settings.LLM.Timeout == 0 {
		settings.LLM.Timeout = defaults.LLM.Timeout
	}
	if settings.Log.Level == "" {
		settings.Log.Level = defaults.Log.Level
	}
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	switch settings.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return errors.Errorf("unsupported environment %q (must be %s, %s or %s)",
			settings.App.Environment, EnvDevelopment, EnvStaging, EnvProduction)
	}

	model, err := claude.Lookup(settings.LLM.Model)
	if err != nil {
		return errors.Wrap(err, "invalid llm.model")
	}
	if settings.LLM.MaxTokens <= 0 || settings.LLM.MaxTokens > model.MaxTokens {
		return errors.Errorf("llm.max_tokens must be between 1 and %d for %s", model.MaxTokens, model.ID)
	}
	if t := settings.LLM.Temperature; t != nil && (*t < 0 || *t > 1) {
		return errors.Errorf("llm.temperature must be between 0 and 1, got %v", *t)
	}
	if settings.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	if settings.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must not be negative")
	}
	return nil
}

// ClientOptions converts the transport settings into client options.
func (l LLMSettings) ClientOptions() []claude.Option {
	opts := []claude.Option{
		claude.WithTimeout(l.Timeout),
		claude.WithMaxRetries(l.MaxRetries),
	}
	if l.BaseURL != "" {
		opts = append(opts, claude.WithBaseURL(l.BaseURL))
	}
	return opts
}

// findSettingsFile searches for settings.yaml in order of preference:
// 1. .hyyve/settings.yaml in current directory
// 2. $HOME/.hyyve/settings.yaml
// Returns empty string if none found
func findSettingsFile() string {
	currentDirPath := filepath.Join(settingsDir, settingsFile)
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, settingsDir, settingsFile)
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}

	return ""
}
