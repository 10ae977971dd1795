package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	ProviderGroq    = "groq"
	ProviderOpenAI  = "openai"
	ProviderAzure   = "azure"
	ProviderBedrock = "bedrock"
)

const (
	DefaultServerAddr  = "127.0.0.1:3000"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 800
)

// Config represents the application configuration
type Config struct {
	LLMProvider string          `json:"llm_provider"`
	Providers   ProvidersConfig `json:"providers"`
	Server      ServerConfig    `json:"server"`
	Client      ClientConfig    `json:"client"`
	LogLevel    string          `json:"log_level"`
	LogFormat   string          `json:"log_format"`
	LogFile     string          `json:"log_file"`
}

// ProvidersConfig holds settings for every completion backend plus the
// optional insight backend.
type ProvidersConfig struct {
	Groq    ProviderConfig `json:"groq"`
	OpenAI  ProviderConfig `json:"openai"`
	Azure   ProviderConfig `json:"azure"`
	Bedrock ProviderConfig `json:"bedrock"`
	Google  ProviderConfig `json:"google"`
}

// ProviderConfig holds the connection settings for one LLM backend.
type ProviderConfig struct {
	APIKey            string  `json:"api_key,omitempty"`
	APIKeyEnv         string  `json:"api_key_env,omitempty"`
	APIURL            string  `json:"api_url,omitempty"`
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	APITimeoutSeconds int     `json:"api_timeout_seconds"`
	Deployment        string  `json:"deployment,omitempty"` // azure
	Region            string  `json:"region,omitempty"`     // bedrock
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// ClientConfig holds terminal client settings.
type ClientConfig struct {
	ServerURL string `json:"server_url"`
}

// Default returns a configuration with default values
func Default() Config {
	return Config{
		LLMProvider: ProviderGroq,
		Providers: ProvidersConfig{
			Groq: ProviderConfig{
				APIKeyEnv:   "GROQ_API_KEY",
				APIURL:      "https://api.groq.com/openai/v1",
				Model:       "llama3-8b-8192",
				Temperature: DefaultTemperature,
				MaxTokens:   DefaultMaxTokens,
			},
			OpenAI: ProviderConfig{
				APIKeyEnv:   "OPENAI_API_KEY",
				APIURL:      "https://api.openai.com/v1",
				Model:       "gpt-4o-mini",
				Temperature: DefaultTemperature,
				MaxTokens:   DefaultMaxTokens,
			},
			Azure: ProviderConfig{
				APIKeyEnv:   "AZURE_OPENAI_API_KEY",
				Model:       "gpt-4o",
				Deployment:  "gpt-4o",
				Temperature: DefaultTemperature,
				MaxTokens:   DefaultMaxTokens,
			},
			Bedrock: ProviderConfig{
				Model:       "meta.llama3-8b-instruct-v1:0",
				Region:      "us-east-1",
				Temperature: DefaultTemperature,
				MaxTokens:   DefaultMaxTokens,
			},
			Google: ProviderConfig{
				APIKeyEnv:         "GEMINI_API_KEY",
				Model:             "gemini-2.5-flash",
				Temperature:       0.2,
				MaxTokens:         512,
				APITimeoutSeconds: 30,
			},
		},
		Server: ServerConfig{
			Addr: DefaultServerAddr,
		},
		Client: ClientConfig{
			ServerURL: "http://" + DefaultServerAddr,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load loads configuration from the specified path
// If the file doesn't exist, creates one with default values
func Load(configPath string) (Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return Config{}, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(configPath, cfg); err != nil {
				return Config{}, fmt.Errorf("failed to create default config: %w", err)
			}
			return applyEnvOverrides(cfg), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	// Decoding over the defaults keeps fields that older files do not carry.
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return applyEnvOverrides(cfg), nil
}

// Save saves the configuration to the specified path
func Save(configPath string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv("BANKCHAT_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("BANKCHAT_SERVER_URL")); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BANKCHAT_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("BANKCHAT_PROVIDER")); v != "" {
		cfg.LLMProvider = v
	}
	return cfg
}

// Validate checks if the configuration is valid. Credentials are not checked
// here: they are resolved per request so a missing key surfaces as a
// configuration error on the chat endpoint instead of a startup failure.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGroq, ProviderOpenAI, ProviderAzure, ProviderBedrock:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}

	p := c.Active()
	if strings.TrimSpace(p.Model) == "" {
		return fmt.Errorf("%s model is required", c.LLMProvider)
	}
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got: %f", p.Temperature)
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got: %d", p.MaxTokens)
	}
	if p.APITimeoutSeconds < 0 {
		return fmt.Errorf("api_timeout_seconds must not be negative, got: %d", p.APITimeoutSeconds)
	}
	if c.LLMProvider == ProviderAzure && strings.TrimSpace(p.APIURL) == "" {
		return fmt.Errorf("azure api_url (resource endpoint) is required")
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server addr is required")
	}

	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	return nil
}

// Active returns the settings of the selected completion provider.
func (c Config) Active() ProviderConfig {
	return c.Provider(c.LLMProvider)
}

// Provider returns the settings stored for the named provider.
func (c Config) Provider(name string) ProviderConfig {
	switch name {
	case ProviderOpenAI:
		return c.Providers.OpenAI
	case ProviderAzure:
		return c.Providers.Azure
	case ProviderBedrock:
		return c.Providers.Bedrock
	case "google":
		return c.Providers.Google
	default:
		return c.Providers.Groq
	}
}

// ResolveAPIKey returns the credential for p. The environment variable named
// by APIKeyEnv wins over the value stored in the file. It is read on every
// call so that rotating the key needs no restart.
func (p ProviderConfig) ResolveAPIKey() string {
	if name := strings.TrimSpace(p.APIKeyEnv); name != "" {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(p.APIKey)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".bankchat/config.json"
	}
	return filepath.Join(homeDir, ".bankchat", "config.json")
}
