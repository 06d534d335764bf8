package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigDir is the directory holding the project config file.
const ConfigDir = ".depgraph"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string // Explicit file; must exist when set
}

// LoaderOption configures a Loader.
type LoaderOption func(*loader)

// WithConfigFile loads the given file instead of searching .depgraph/.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) {
		l.configFile = path
	}
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{
		rootDir: rootDir,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DEPGRAPH_*)
// 2. Config file (.depgraph/config.yml or .depgraph/config.yaml, or the explicit file)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ConfigDir))
	}

	v.SetEnvPrefix("DEPGRAPH")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., DEPGRAPH_INPUT_GRAPH)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Input configuration
	v.BindEnv("input.graph")
	v.BindEnv("input.config")

	// Output configuration
	v.BindEnv("output.path")
	v.BindEnv("output.script.enabled")
	v.BindEnv("output.script.path")

	// Parse configuration
	v.BindEnv("parse.process_namespace")
	v.BindEnv("parse.cms_namespace")
	v.BindEnv("parse.max_snippet_lines")

	// Graph and watch configuration
	v.BindEnv("graph.label_collision")
	v.BindEnv("watch.debounce_ms")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("input.graph", defaults.Input.Graph)
	v.SetDefault("input.config", defaults.Input.Config)

	v.SetDefault("output.path", defaults.Output.Path)
	v.SetDefault("output.script.enabled", defaults.Output.Script.Enabled)
	v.SetDefault("output.script.path", defaults.Output.Script.Path)

	v.SetDefault("parse.process_namespace", defaults.Parse.ProcessNamespace)
	v.SetDefault("parse.cms_namespace", defaults.Parse.CMSNamespace)
	v.SetDefault("parse.max_snippet_lines", defaults.Parse.MaxSnippetLines)

	v.SetDefault("graph.label_collision", defaults.Graph.LabelCollision)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig(opts ...LoaderOption) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd, opts...).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string, opts ...LoaderOption) (*Config, error) {
	return NewLoader(rootDir, opts...).Load()
}
