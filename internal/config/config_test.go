package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "claude", cfg.AI.Provider)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devora.toml")
	content := `
[server]
port = 9000

[auth]
jwt_secret = "s3cret"

[ai]
provider = "ollama"
model = "qwen2.5-coder"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.AI.Model)
	// Defaults survive partial files
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DEVORA_SERVER_PORT", "7777")
	t.Setenv("DEVORA_AI_PROVIDER", "openai")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devora.toml")

	require.NoError(t, InitConfig(path))
	assert.Error(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Server.Port = 8090
		cfg.Auth.JWTSecret = "secret"
		cfg.AI.Provider = "claude"
		cfg.AI.APIKey = "key"
		return cfg
	}

	assert.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.Server.Port = 0
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Auth.JWTSecret = ""
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.AI.Provider = "watson"
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.AI.Provider = "ollama"
	cfg.AI.APIKey = ""
	assert.NoError(t, Validate(cfg))

	cfg = valid()
	cfg.AI.APIKey = ""
	assert.Error(t, Validate(cfg))
}
