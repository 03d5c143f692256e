package commandy

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	defaults "github.com/Paranoid-AF/commandy/default"
)

// Config represents the user's commandy configuration.
type Config struct {
	Version     int               `json:"version" toml:"version"`
	Model       ModelParameters   `json:"model" toml:"model"`
	Engine      EngineConfig      `json:"engine" toml:"engine"`
	Suggestions SuggestionsConfig `json:"suggestions" toml:"suggestions"`
	Validation  ValidationConfig  `json:"validation" toml:"validation"`
	Context     ContextConfig     `json:"context" toml:"context"`
}

// EngineConfig holds settings for the llama.cpp binary.
type EngineConfig struct {
	// Binary is an explicit path to the engine. Empty means auto-detect.
	Binary string `json:"binary,omitempty" toml:"binary"`
	// Timeout bounds a single engine run. Zero means no bound.
	Timeout time.Duration `json:"timeout,omitempty" toml:"timeout"`
}

// SuggestionsConfig holds settings for the suggestion list.
type SuggestionsConfig struct {
	Max int `json:"max" toml:"max"`
}

// ValidationConfig holds settings for the command validator.
type ValidationConfig struct {
	// Resolver selects the executable lookup: "path" or "which".
	Resolver    string `json:"resolver" toml:"resolver"`
	SyntaxCheck bool   `json:"syntax_check" toml:"syntax_check"`
}

// ContextConfig holds settings for context collection.
type ContextConfig struct {
	History        bool `json:"history" toml:"history"`
	RecentCommands int  `json:"recent_commands" toml:"recent_commands"`
}

// Resolver names accepted in ValidationConfig.Resolver.
const (
	ResolverPath  = "path"
	ResolverWhich = "which"
)

// ConfigDir returns the config directory path.
// Resolution order: $COMMANDY_CONFIG_DIR > $XDG_CONFIG_HOME/commandy > ~/.config/commandy
func ConfigDir() string {
	if dir := os.Getenv("COMMANDY_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "commandy")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "commandy-config")
	}
	return filepath.Join(home, ".config", "commandy")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// PromptPath returns the custom prompt template path.
func PromptPath() string {
	return filepath.Join(ConfigDir(), "prompt.tmpl")
}

// VocabularyPath returns the vocabulary override path.
func VocabularyPath() string {
	return filepath.Join(ConfigDir(), "vocabulary.yaml")
}

// LearnedPath returns the learned-patterns file path.
func LearnedPath() string {
	return filepath.Join(ConfigDir(), "context.md")
}

// EnvPath returns the dotenv file loaded by the CLI.
func EnvPath() string {
	return filepath.Join(ConfigDir(), "commandy.env")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.NewDecoder(bytes.NewReader(defaults.DefaultConfigTOML)).Decode(&cfg); err != nil {
		panic("commandy: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
// Keys missing from the file keep their default values.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile loads config from path, layered over the defaults.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", "key", key.String(), "path", path)
	}
	return cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if ResolveModel(cfg) == "" {
		warnings = append(warnings, "model.name is empty; the engine will not know which model to load")
	}
	if cfg.Model.MaxTokens <= 0 {
		warnings = append(warnings, fmt.Sprintf("model.max_tokens must be positive, got %d", cfg.Model.MaxTokens))
	}
	if cfg.Model.Temperature < 0 {
		warnings = append(warnings, fmt.Sprintf("model.temperature must not be negative, got %g", cfg.Model.Temperature))
	}
	if cfg.Engine.Timeout < 0 {
		warnings = append(warnings, "engine.timeout is negative; treating it as no timeout")
	}
	if cfg.Suggestions.Max <= 0 {
		warnings = append(warnings, fmt.Sprintf("suggestions.max must be positive, got %d", cfg.Suggestions.Max))
	}
	switch cfg.Validation.Resolver {
	case ResolverPath, ResolverWhich, "":
	default:
		warnings = append(warnings, fmt.Sprintf("validation.resolver %q is unknown; using %q", cfg.Validation.Resolver, ResolverPath))
	}
	return warnings
}

// ResolveModel returns the model identifier.
// Priority: $COMMANDY_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if model := os.Getenv("COMMANDY_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Model.Model
	}
	return ""
}

// ResolveBinary returns the explicitly configured engine binary, if any.
// Priority: $COMMANDY_BINARY env > config value.
func ResolveBinary(cfg *Config) string {
	if bin := os.Getenv("COMMANDY_BINARY"); bin != "" {
		return bin
	}
	if cfg != nil {
		return cfg.Engine.Binary
	}
	return ""
}

// ResolveModelParameters returns the parameters passed to the engine.
func ResolveModelParameters(cfg *Config) ModelParameters {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return ModelParameters{
		Model:       ResolveModel(cfg),
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
	}
}
