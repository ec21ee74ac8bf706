package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port     int    `koanf:"port"`
		LogLevel string `koanf:"log_level"`
	} `koanf:"server"`

	Auth struct {
		JWTSecret string `koanf:"jwt_secret"`
	} `koanf:"auth"`

	AI struct {
		Provider    string  `koanf:"provider"`
		Model       string  `koanf:"model"`
		APIKey      string  `koanf:"api_key"`
		BaseURL     string  `koanf:"base_url"`
		Temperature float64 `koanf:"temperature"`
		MaxTokens   int     `koanf:"max_tokens"`
	} `koanf:"ai"`

	Deploy struct {
		Hosting struct {
			Endpoint string `koanf:"endpoint"`
			Token    string `koanf:"token"`
		} `koanf:"hosting"`
		GitLab struct {
			URL       string `koanf:"url"`
			Token     string `koanf:"token"`
			Namespace string `koanf:"namespace"`
		} `koanf:"gitlab"`
	} `koanf:"deploy"`

	Billing struct {
		WebhookSecret string `koanf:"webhook_secret"`
	} `koanf:"billing"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":      8090,
		"server.log_level": "info",
		"ai.provider":      "claude",
		"ai.temperature":   0.2,
		"ai.max_tokens":    8192,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./devora.toml", "$HOME/.devora.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix DEVORA_
	k.Load(env.Provider("DEVORA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DEVORA_")), "_", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Devora Configuration

[server]
port = 8090
log_level = "info"

[auth]
jwt_secret = "change-me"

[ai]
provider = "claude"
model = "claude-sonnet-4-20250514"
api_key = "your-api-key"
temperature = 0.2
max_tokens = 8192

[deploy.hosting]
endpoint = "https://hosting.devora.app"
token = "your-hosting-token"

[deploy.gitlab]
url = "https://gitlab.com"
token = "your-gitlab-token"
namespace = "your-group"

[billing]
webhook_secret = "your-webhook-secret"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", config.Server.Port)
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch config.AI.Provider {
	case "openai", "claude", "gemini", "ollama":
	case "":
		return fmt.Errorf("ai.provider is required")
	default:
		return fmt.Errorf("unknown ai.provider %q", config.AI.Provider)
	}

	if config.AI.Provider != "ollama" && config.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required for provider %s", config.AI.Provider)
	}

	return nil
}
