// Package config provides shared configuration types for schemadoc.
// This package is decoupled from CLI concerns and can be used by the HTTP
// server and other tools that need to load project configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemadoc/internal/version"
)

// ServeConfig holds configuration for the HTTP API server.
type ServeConfig struct {
	Host  string `koanf:"host"`
	Port  int    `koanf:"port"`
	Watch bool   `koanf:"watch"`
}

// Addr returns the listen address.
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IntrospectConfig holds the live PostgreSQL connection used to capture
// schema snapshots.
type IntrospectConfig struct {
	DSN    string `koanf:"dsn"`
	Schema string `koanf:"schema"`
}

// LintConfig holds catalogue lint settings.
type LintConfig struct {
	// Severity is the least severe finding reported: error, warning or info.
	Severity string `koanf:"severity"`
	// Scalars lists extra document scalars remark authors may use.
	Scalars []string `koanf:"scalars"`
}

// Config holds all schemadoc configuration options.
type Config struct {
	// Catalogue is the remark catalogue path; empty selects the built-in
	// Bugzilla catalogue.
	Catalogue string `koanf:"catalogue"`
	// Schema is a snapshot YAML file or a SQLite snapshot store.
	Schema       string           `koanf:"schema"`
	FirstVersion string           `koanf:"first_version"`
	LastVersion  string           `koanf:"last_version"`
	Workers      int              `koanf:"workers"`
	Memoize      bool             `koanf:"memoize"`
	Verbose      bool             `koanf:"verbose"`
	OutputFormat string           `koanf:"output"`
	Serve        ServeConfig      `koanf:"serve"`
	Introspect   IntrospectConfig `koanf:"introspect"`
	Lint         LintConfig       `koanf:"lint"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Window returns the configured version window. Unset bounds fall back to
// def.
func (c *Config) Window(def version.Range) version.Range {
	w := def
	if c.FirstVersion != "" {
		w.Lo = version.Version(c.FirstVersion)
	}
	if c.LastVersion != "" {
		w.Hi = version.Version(c.LastVersion)
	}
	return w
}

// SchemaIsStore reports whether Schema names a SQLite snapshot store rather
// than a snapshot YAML file.
func (c *Config) SchemaIsStore() bool {
	ext := strings.ToLower(c.Schema)
	return strings.HasSuffix(ext, ".db") || strings.HasSuffix(ext, ".sqlite") || strings.HasSuffix(ext, ".sqlite3")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !IsOutputFormat(c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %s)", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	switch c.Lint.Severity {
	case "", "error", "warning", "info":
	default:
		return fmt.Errorf("invalid lint.severity %q", c.Lint.Severity)
	}
	return nil
}

// IsOutputFormat reports whether s is a known output format.
func IsOutputFormat(s string) bool {
	for _, f := range OutputFormats {
		if f == s {
			return true
		}
	}
	return false
}
