package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned when the model provider's API key is not
// present in the environment.
var ErrMissingCredential = errors.New("missing required credential")

type Config struct {
	DefaultLLM string                `toml:"default_llm"`
	LLMs       map[string]*LLMConfig `toml:"llm"`
	Agent      AgentConfig           `toml:"agent"`
	Gateway    GatewayConfig         `toml:"gateway"`
	Wikipedia  WikipediaConfig       `toml:"wikipedia"`
	Cache      CacheConfig           `toml:"cache"`
	Trace      TraceConfig           `toml:"trace"`

	// APIKey is the resolved credential of the default LLM. It is never read
	// from the config file.
	APIKey string `toml:"-"`
}

type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	APIKeyEnv   string  `toml:"api_key_env"`
	Temperature float64 `toml:"temperature"`
}

type AgentConfig struct {
	Strategy      string `toml:"strategy"`
	MaxIterations int    `toml:"max_iterations"`
}

type GatewayConfig struct {
	Addr string `toml:"addr"`
}

type WikipediaConfig struct {
	APIURL   string `toml:"api_url"`
	Lang     string `toml:"lang"`
	TopK     int    `toml:"top_k"`
	MaxChars int    `toml:"max_chars"`
}

type CacheConfig struct {
	Enabled    bool     `toml:"enabled"`
	Path       string   `toml:"path"`
	TTL        Duration `toml:"ttl"`
	MaxEntries int      `toml:"max_entries"`
}

type TraceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

var defaultKeyEnv = map[string]string{
	"gemini": "GOOGLE_API_KEY",
	"openai": "OPENAI_API_KEY",
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		DefaultLLM: "gemini",
		LLMs: map[string]*LLMConfig{
			"gemini": {
				Provider:  "gemini",
				Model:     "gemini-1.5-flash",
				APIKeyEnv: "GOOGLE_API_KEY",
			},
			"openai": {
				Provider:  "openai",
				Model:     "gpt-4o-mini",
				APIKeyEnv: "OPENAI_API_KEY",
			},
		},
		Agent: AgentConfig{
			Strategy:      "zero-shot-react-description",
			MaxIterations: 15,
		},
		Gateway: GatewayConfig{
			Addr: "127.0.0.1:5000",
		},
		Wikipedia: WikipediaConfig{
			Lang:     "en",
			TopK:     3,
			MaxChars: 4000,
		},
		Cache: CacheConfig{
			Path:       defaultCachePath(),
			TTL:        Duration(24 * time.Hour),
			MaxEntries: 10000,
		},
	}
}

// Load builds the configuration from defaults, an optional .env file in the
// working directory, an optional TOML file and environment overrides, then
// resolves the default LLM's credential. An empty path means the default
// config location.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = configPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if v := os.Getenv("WIKICHAT_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("WIKICHAT_LLM"); v != "" {
		cfg.DefaultLLM = v
	}

	llmCfg, err := cfg.LLM()
	if err != nil {
		return nil, err
	}

	key, err := LoadCredential(llmCfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = key

	return cfg, nil
}

// LLM returns the settings of the default LLM.
func (c *Config) LLM() (*LLMConfig, error) {
	llmCfg, ok := c.LLMs[c.DefaultLLM]
	if !ok {
		return nil, fmt.Errorf("default LLM %q not found in config", c.DefaultLLM)
	}
	if llmCfg.Provider == "" {
		llmCfg.Provider = c.DefaultLLM
	}
	if llmCfg.APIKeyEnv == "" {
		llmCfg.APIKeyEnv = defaultKeyEnv[llmCfg.Provider]
	}
	return llmCfg, nil
}

// LoadCredential reads the named environment variable. An unset or empty
// variable is an error.
func LoadCredential(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: no environment variable configured", ErrMissingCredential)
	}
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, name)
	}
	return v, nil
}

func configPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "wikichat", "config.toml")
}

func defaultCachePath() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "wikichat", "lookup.db")
}
