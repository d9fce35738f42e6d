package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDir(t *testing.T) {
	t.Run("no config file", func(t *testing.T) {
		cfg, err := LoadFromDir(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("yml alternate with defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `catalogue: remarks/bugzilla.yaml
schema: /abs/snapshots.db
first_version: '4.0'
serve:
  watch: true
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte(content), 0o600))

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, filepath.Join(dir, "remarks", "bugzilla.yaml"), cfg.Catalogue)
		assert.Equal(t, "/abs/snapshots.db", cfg.Schema)
		assert.True(t, cfg.SchemaIsStore())
		assert.Equal(t, "4.0", cfg.FirstVersion)
		assert.True(t, cfg.Serve.Watch)
		assert.Equal(t, DefaultServePort, cfg.Serve.Port)
		assert.Equal(t, DefaultWorkers, cfg.Workers)
		assert.Equal(t, DefaultOutput, cfg.OutputFormat)
		assert.NoError(t, cfg.Validate())
	})
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("workers: 2\n"), 0o600))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, filepath.Join(root, ConfigFileName), FindConfigFile(root))
	assert.Empty(t, FindConfigFile(nested))
}

func TestConfig_Window(t *testing.T) {
	def := version.Between("5.0", "5.2")

	tests := []struct {
		name string
		cfg  Config
		want version.Range
	}{
		{"defaults", Config{}, def},
		{"first only", Config{FirstVersion: "4.0"}, version.Between("4.0", "5.2")},
		{"both", Config{FirstVersion: "2.0", LastVersion: "2.22"}, version.Between("2.0", "2.22")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Window(def))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := Config{}
		ApplyDefaults(&c)
		return c
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad output", func(c *Config) { c.OutputFormat = "xml" }, "invalid output format"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"port out of range", func(c *Config) { c.Serve.Port = 70000 }, "serve.port"},
		{"bad severity", func(c *Config) { c.Lint.Severity = "fatal" }, "lint.severity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestServeConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8765", ServeConfig{Host: DefaultServeHost, Port: DefaultServePort}.Addr())
	assert.Equal(t, ":9000", ServeConfig{Port: 9000}.Addr())
}
