package config

// Default configuration values.
const (
	DefaultWorkers      = 4
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultServeHost    = "127.0.0.1"
	DefaultServePort    = 8765
	DefaultPGSchema     = "public"
	DefaultLintSeverity = "warning"
)

// OutputFormats lists the accepted values of the output key.
var OutputFormats = []string{"auto", "text", "markdown", "json", "html"}

// Defaults returns the default configuration as a flat koanf key map.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"catalogue":         "",
		"schema":            "",
		"first_version":     "",
		"last_version":      "",
		"workers":           DefaultWorkers,
		"memoize":           false,
		"verbose":           false,
		"output":            DefaultOutput,
		"serve.host":        DefaultServeHost,
		"serve.port":        DefaultServePort,
		"serve.watch":       false,
		"introspect.dsn":    "",
		"introspect.schema": DefaultPGSchema,
		"lint.severity":     DefaultLintSeverity,
	}
}

// ApplyDefaults fills unset fields of c.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutput
	}
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultServeHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultServePort
	}
	if c.Introspect.Schema == "" {
		c.Introspect.Schema = DefaultPGSchema
	}
	if c.Lint.Severity == "" {
		c.Lint.Severity = DefaultLintSeverity
	}
}
