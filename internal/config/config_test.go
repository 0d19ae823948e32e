package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Store:  StoreConfig{Backend: "badger"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"INFO", true},   // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_StoreBackends(t *testing.T) {
	tests := []struct {
		backend string
		valid   bool
	}{
		{"badger", true},
		{"sqlite", true},
		{"postgres", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := validConfig()
			cfg.Store.Backend = tt.backend

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	assert.Error(t, cfg.Validate())
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: true, RPS: 0, Burst: 10}
	assert.Error(t, cfg.Validate())

	cfg.RateLimit = RateLimitConfig{Enabled: false, RPS: 0, Burst: 0}
	assert.NoError(t, cfg.Validate(), "disabled rate limiting skips rps/burst checks")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name        string
		path        string
		defaultPath string
		want        string
	}{
		{"empty uses default", "", "/default", "/default"},
		{"absolute unchanged", "/abs/path", "", "/abs/path"},
		{"tilde expanded", "~/recall", "", filepath.Join(home, "recall")},
		{"cleaned", "/a/b/../c", "", "/a/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPath(tt.path, tt.defaultPath)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandImportAndExportDirs(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = "/data"

	require.NoError(t, cfg.expandImportDir())
	require.NoError(t, cfg.expandExportDir())

	assert.Equal(t, "/data/import", cfg.Import.Dir)
	assert.Equal(t, "/data/export", cfg.Export.Dir)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("RECALL_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "RECALL_TEST_KEY", "fallback"))
	assert.Equal(t, "from-env", getConfigValue("", "RECALL_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getConfigValue("", "RECALL_TEST_MISSING", "fallback"))
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"TRUE", true},
		{"false", false},
		{"0", false},
		{"nonsense", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, getBoolConfigValue(tt.value, "RECALL_TEST_MISSING", !tt.want))
		})
	}

	// Empty falls back to the default.
	assert.True(t, getBoolConfigValue("", "RECALL_TEST_MISSING", true))
}

func TestGetIntConfigValue(t *testing.T) {
	assert.Equal(t, 42, getIntConfigValue("42", "RECALL_TEST_MISSING", 7))
	assert.Equal(t, 7, getIntConfigValue("", "RECALL_TEST_MISSING", 7))
	assert.Equal(t, 7, getIntConfigValue("not-a-number", "RECALL_TEST_MISSING", 7))
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("250ms", "RECALL_TEST_MISSING", "1s")
	require.NoError(t, err)
	assert.Equal(t, "250ms", d.String())

	d, err = parseDurationValue("", "RECALL_TEST_MISSING", "1s")
	require.NoError(t, err)
	assert.Equal(t, "1s", d.String())

	_, err = parseDurationValue("bogus", "RECALL_TEST_MISSING", "1s")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nRECALL_ENVFILE_A=hello\nRECALL_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Cleanup(func() {
		os.Unsetenv("RECALL_ENVFILE_A")
		os.Unsetenv("RECALL_ENVFILE_B")
	})

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("RECALL_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("RECALL_ENVFILE_B"))
}

func TestLoadEnvFile_EnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RECALL_ENVFILE_C=from-file\n"), 0644))

	t.Setenv("RECALL_ENVFILE_C", "from-env")
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-env", os.Getenv("RECALL_ENVFILE_C"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT A KV PAIR\n"), 0644))

	assert.Error(t, loadEnvFile(path))
}
