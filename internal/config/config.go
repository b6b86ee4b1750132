// Package config handles Inkwell configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultModel is the model identifier used when neither the config
// file nor the block's model option names one. The registry resolves it
// only if the embedding application registers a backend under it.
const DefaultModel = "haiku"

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, $XDG_CONFIG_HOME/inkwell/config.yaml,
// ~/.config/inkwell/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "inkwell", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "inkwell", "config.yaml"))
	}

	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Inkwell configuration.
type Config struct {
	Vault      VaultConfig      `yaml:"vault"`
	Model      ModelConfig      `yaml:"model"`
	Processing ProcessingConfig `yaml:"processing"`
	Tools      ToolsConfig      `yaml:"tools"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Usage      UsageConfig      `yaml:"usage"`
	LogLevel   string           `yaml:"log_level"`
}

// VaultConfig locates the note vault and its auxiliary directories.
type VaultConfig struct {
	// Root is the vault directory. All note paths are relative to it.
	Root string `yaml:"root"`
	// PromptsDir holds system prompt files. Defaults to {root}/Prompts.
	PromptsDir string `yaml:"prompts_dir"`
	// ScriptsDir holds script sources. Defaults to {root}/scripts.
	ScriptsDir string `yaml:"scripts_dir"`
	// SearchPaths are extra roots tried when resolving plain file
	// references, after the vault root.
	SearchPaths []string `yaml:"search_paths"`
	// Exclude lists directories hidden from note tools. Empty means
	// the builtin exclusion list.
	Exclude []string `yaml:"exclude"`
}

// ModelConfig sets backend call defaults. Block options override these
// per block.
type ModelConfig struct {
	Default     string  `yaml:"default"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// ProcessingConfig bounds the turn loop and script execution.
type ProcessingConfig struct {
	// MaxToolRounds caps backend round trips per block. A block that
	// reaches the cap ends with an in-document error (default 25).
	MaxToolRounds int `yaml:"max_tool_rounds"`
	// RetryOnError re-arms the reply tag when a block fails, so saving
	// the file again retries the call. When false the failed block
	// keeps its error text but will not re-trigger.
	RetryOnError bool `yaml:"retry_on_error"`
	// ScriptTimeoutSec caps script execution (default 60).
	ScriptTimeoutSec int `yaml:"script_timeout_sec"`
}

// ToolsConfig tunes the builtin toolsets.
type ToolsConfig struct {
	// Exclude removes named tools from every toolset (e.g. deny
	// run_command on a shared machine).
	Exclude []string `yaml:"exclude"`
	// CommandTimeoutSec caps run_command execution (default 30).
	CommandTimeoutSec int `yaml:"command_timeout_sec"`
	// MaxOutputKB caps captured stdout and stderr, each (default 100).
	MaxOutputKB int `yaml:"max_output_kb"`
}

// FetchConfig tunes webpage retrieval for url tags and fetch_webpage.
type FetchConfig struct {
	// TimeoutSec is the per-request timeout (default 30).
	TimeoutSec int `yaml:"timeout_sec"`
	// MaxBytes caps the response body read (default 5 MiB).
	MaxBytes int `yaml:"max_bytes"`
	// MaxChars caps extracted content length (default 50000).
	MaxChars int `yaml:"max_chars"`
}

// UsageConfig locates the token accounting database.
type UsageConfig struct {
	// DBPath is the SQLite file for usage records, created on first
	// open (default data/usage.db).
	DBPath string `yaml:"db_path"`
}

// Load reads configuration from a YAML file. Fields absent from the
// file keep the Default values; derived paths are filled afterwards.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default returns a configuration with all scalar defaults set. The
// vault root has no default; it comes from the file or the -vault flag.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Default:     DefaultModel,
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Processing: ProcessingConfig{
			MaxToolRounds:    25,
			ScriptTimeoutSec: 60,
		},
		Tools: ToolsConfig{
			CommandTimeoutSec: 30,
			MaxOutputKB:       100,
		},
		Fetch: FetchConfig{
			TimeoutSec: 30,
			MaxBytes:   5 << 20,
			MaxChars:   50000,
		},
		Usage: UsageConfig{
			DBPath: filepath.Join("data", "usage.db"),
		},
	}
}

// applyDefaults fills values derived from other fields.
func (c *Config) applyDefaults() {
	if c.Vault.Root != "" {
		if c.Vault.PromptsDir == "" {
			c.Vault.PromptsDir = filepath.Join(c.Vault.Root, "Prompts")
		}
		if c.Vault.ScriptsDir == "" {
			c.Vault.ScriptsDir = filepath.Join(c.Vault.Root, "scripts")
		}
	}
}
