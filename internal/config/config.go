// Package config provides configuration loading for depgraph.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (DEPGRAPH_*)
//  2. Config file (.depgraph/config.yml, or the file passed with --config)
//  3. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: DEPGRAPH_
//   - Nested fields: Use underscores (DEPGRAPH_OUTPUT_SCRIPT_ENABLED)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
//
// Command-line arguments are applied by the CLI on top of the loaded config.
package config

import (
	"time"

	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/mvp-joe/depgraph/internal/graph"
)

// Config represents the complete depgraph configuration.
type Config struct {
	Input  InputConfig  `yaml:"input" mapstructure:"input"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Graph  GraphConfig  `yaml:"graph" mapstructure:"graph"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
}

// InputConfig locates the two input artifacts.
type InputConfig struct {
	Graph  string `yaml:"graph" mapstructure:"graph"`   // DOT dependency graph
	Config string `yaml:"config" mapstructure:"config"` // Configuration dump
}

// OutputConfig controls where the bundle is written.
type OutputConfig struct {
	Path   string       `yaml:"path" mapstructure:"path"`
	Script ScriptConfig `yaml:"script" mapstructure:"script"`
}

// ScriptConfig controls the script copy of the bundle.
type ScriptConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // Empty means next to the bundle with a .js extension
}

// ParseConfig tunes the config dump parser.
type ParseConfig struct {
	ProcessNamespace string `yaml:"process_namespace" mapstructure:"process_namespace"`
	CMSNamespace     string `yaml:"cms_namespace" mapstructure:"cms_namespace"`
	MaxSnippetLines  int    `yaml:"max_snippet_lines" mapstructure:"max_snippet_lines"` // 0 keeps whole snippets
}

// GraphConfig tunes the DOT parser.
type GraphConfig struct {
	LabelCollision string `yaml:"label_collision" mapstructure:"label_collision"` // "last" or "first"
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Debounce returns the debounce period as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Graph:  "dependency.gv",
			Config: "dumpConfig.py",
		},
		Output: OutputConfig{
			Path: "data/bundle.json",
			Script: ScriptConfig{
				Enabled: true,
				Path:    "",
			},
		},
		Parse: ParseConfig{
			ProcessNamespace: dump.DefaultProcessNamespace,
			CMSNamespace:     dump.DefaultCMSNamespace,
			MaxSnippetLines:  dump.DefaultMaxSnippetLines,
		},
		Graph: GraphConfig{
			LabelCollision: string(graph.CollisionLast),
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// DumpOptions returns the parser options this configuration implies.
func (c *Config) DumpOptions() []dump.Option {
	return []dump.Option{
		dump.WithProcessNamespace(c.Parse.ProcessNamespace),
		dump.WithCMSNamespace(c.Parse.CMSNamespace),
		dump.WithMaxSnippetLines(c.Parse.MaxSnippetLines),
	}
}

// GraphOptions returns the DOT parser options this configuration implies.
func (c *Config) GraphOptions() []graph.Option {
	return []graph.Option{
		graph.WithLabelCollision(graph.CollisionPolicy(c.Graph.LabelCollision)),
	}
}
