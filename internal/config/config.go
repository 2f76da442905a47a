// Package config provides configuration types and defaults for nsresolve.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/tracing"
)

// DefaultScope is the name of the scope built from the top-level settings.
const DefaultScope = "default"

// ErrUnknownScope is returned for a scope name that is not configured.
var ErrUnknownScope = errors.New("unknown scope")

// Config holds all configuration options for nsresolve.
type Config struct {
	ResourcePath string        `mapstructure:"resource_path"`
	Builtin      bool          `mapstructure:"builtin"` // include the built-in handlers root
	Roots        []string      `mapstructure:"roots"`   // directory glob patterns, searched in order
	Scopes       []ScopeConfig `mapstructure:"scopes"`
	Tracing      TracingConfig `mapstructure:"tracing"`
	Journal      JournalConfig `mapstructure:"journal"`
	Server       ServerConfig  `mapstructure:"server"`
	Watch        WatchConfig   `mapstructure:"watch"`
}

// ScopeConfig defines a named search scope. Empty fields inherit the
// top-level settings.
type ScopeConfig struct {
	Name         string   `mapstructure:"name" yaml:"name"`
	Roots        []string `mapstructure:"roots" yaml:"roots,omitempty"`
	Builtin      *bool    `mapstructure:"builtin" yaml:"builtin,omitempty"` // nil = inherit
	ResourcePath string   `mapstructure:"resource_path" yaml:"resource_path,omitempty"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/nsresolve/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// JournalConfig controls the SQLite event journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig controls `nsresolve serve`.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WatchConfig controls `nsresolve watch`.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ProviderConfig converts the tracing settings for tracing.NewProvider.
func (t TracingConfig) ProviderConfig() tracing.Config {
	return tracing.Config{
		Enabled:      t.Enabled,
		Exporter:     t.Exporter,
		FilePath:     t.FilePath,
		OTLPEndpoint: t.OTLPEndpoint,
		SampleRate:   t.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	}
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/nsresolve/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nsresolve", "traces", "traces.jsonl")
}

// DefaultJournalPath returns ~/.nsresolve/journal.db or empty string if home dir unavailable.
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nsresolve", "journal.db")
}

// Scope returns the effective settings of the named scope, with inherited
// fields filled in.
func (c Config) Scope(name string) (ScopeConfig, error) {
	builtin := c.Builtin
	base := ScopeConfig{
		Name:         DefaultScope,
		Roots:        c.Roots,
		Builtin:      &builtin,
		ResourcePath: c.ResourcePath,
	}
	if base.ResourcePath == "" {
		base.ResourcePath = namespace.DefaultResourcePath
	}
	if name == "" || name == DefaultScope {
		return base, nil
	}

	for _, s := range c.Scopes {
		if s.Name != name {
			continue
		}
		if s.Roots == nil {
			s.Roots = base.Roots
		}
		if s.Builtin == nil {
			s.Builtin = base.Builtin
		}
		if s.ResourcePath == "" {
			s.ResourcePath = base.ResourcePath
		}
		return s, nil
	}
	return ScopeConfig{}, fmt.Errorf("%w %q", ErrUnknownScope, name)
}

// ScopeNames returns the default scope followed by the configured scopes, sorted.
func (c Config) ScopeNames() []string {
	names := make([]string, 0, len(c.Scopes))
	for _, s := range c.Scopes {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return append([]string{DefaultScope}, names...)
}

// IncludesBuiltin reports whether the scope searches the built-in root.
func (s ScopeConfig) IncludesBuiltin() bool {
	return s.Builtin != nil && *s.Builtin
}

// ValidateScopes checks scope names for errors.
func ValidateScopes(scopes []ScopeConfig) error {
	seen := make(map[string]bool, len(scopes))
	for i, s := range scopes {
		if s.Name == "" {
			return fmt.Errorf("scope %d: name is required", i)
		}
		if s.Name == DefaultScope {
			return fmt.Errorf("scope %d: %q is reserved", i, DefaultScope)
		}
		if seen[s.Name] {
			return fmt.Errorf("scope %d: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Path requirements only matter when tracing is on.
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// ValidateJournal checks journal configuration for errors.
func ValidateJournal(journal JournalConfig) error {
	if journal.Enabled && journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateScopes(c.Scopes); err != nil {
		return err
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	if err := ValidateJournal(c.Journal); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		ResourcePath: namespace.DefaultResourcePath,
		Builtin:      true,
		Roots:        []string{"."},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    DefaultJournalPath(),
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8670",
			ShutdownTimeout: 5 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# nsresolve configuration

# Logical path of the handler mapping resource inside every root
resource_path: META-INF/nsresolve.handlers

# Search the built-in handlers (util, context, cache) before any root
builtin: true

# Directory roots searched for mapping resources, in order.
# Later roots override earlier ones. Doublestar patterns are expanded.
roots:
  - .
  # - plugins/*
  # - vendor/**/handlers

# Named scopes. Unset fields inherit the settings above.
# scopes:
#   - name: plugins
#     roots:
#       - plugins/*
#     builtin: false

# Distributed tracing (OpenTelemetry)
tracing:
  enabled: false
  exporter: file          # none, file, stdout, otlp
  # file_path: ~/.config/nsresolve/traces/traces.jsonl
  # otlp_endpoint: localhost:4317
  sample_rate: 1.0

# Resolution journal (SQLite)
journal:
  enabled: false
  # path: ~/.nsresolve/journal.db

# HTTP API (nsresolve serve)
server:
  addr: 127.0.0.1:8670
  shutdown_timeout: 5s

# File watcher (nsresolve watch)
watch:
  debounce: 100ms
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
