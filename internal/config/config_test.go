package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no stray .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadCredential(t *testing.T) {
	t.Setenv("WIKICHAT_TEST_KEY", "secret")
	key, err := LoadCredential("WIKICHAT_TEST_KEY")
	require.NoError(t, err)
	require.Equal(t, "secret", key)
}

func TestLoadCredential_Missing(t *testing.T) {
	t.Setenv("WIKICHAT_TEST_KEY", "")
	_, err := LoadCredential("WIKICHAT_TEST_KEY")
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Contains(t, err.Error(), "WIKICHAT_TEST_KEY")
}

func TestLoad_MissingCredential(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := Load(filepath.Join(dir, "absent.toml"))
	require.True(t, errors.Is(err, ErrMissingCredential), "got %v", err)
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("WIKICHAT_ADDR", "")
	t.Setenv("WIKICHAT_LLM", "")

	cfg, err := Load(filepath.Join(dir, "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "g-key", cfg.APIKey)
	require.Equal(t, "127.0.0.1:5000", cfg.Gateway.Addr)
	require.Equal(t, "zero-shot-react-description", cfg.Agent.Strategy)
	require.Equal(t, 15, cfg.Agent.MaxIterations)
	require.Equal(t, 3, cfg.Wikipedia.TopK)
	require.False(t, cfg.Cache.Enabled)
	require.Equal(t, 10000, cfg.Cache.MaxEntries)

	llmCfg, err := cfg.LLM()
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-flash", llmCfg.Model)
	require.Zero(t, llmCfg.Temperature)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GOOGLE_API_KEY", "")
	os.Unsetenv("GOOGLE_API_KEY")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=from-dotenv\n"), 0o644))

	cfg, err := Load(filepath.Join(dir, "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.APIKey)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("WIKICHAT_ADDR", "")
	t.Setenv("WIKICHAT_LLM", "")

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_llm = "openai"

[llm.openai]
model = "gpt-4.1-mini"
temperature = 0.2

[agent]
strategy = "tool-calling"

[gateway]
addr = ":8080"

[cache]
enabled = true
ttl = "90m"
max_entries = 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "o-key", cfg.APIKey)
	require.Equal(t, ":8080", cfg.Gateway.Addr)
	require.Equal(t, "tool-calling", cfg.Agent.Strategy)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 90*time.Minute, cfg.Cache.TTL.Std())
	require.Equal(t, 50, cfg.Cache.MaxEntries)

	llmCfg, err := cfg.LLM()
	require.NoError(t, err)
	require.Equal(t, "openai", llmCfg.Provider)
	require.Equal(t, "OPENAI_API_KEY", llmCfg.APIKeyEnv)
	require.Equal(t, "gpt-4.1-mini", llmCfg.Model)
	require.InDelta(t, 0.2, llmCfg.Temperature, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("WIKICHAT_ADDR", "0.0.0.0:9000")
	t.Setenv("WIKICHAT_LLM", "openai")

	cfg, err := Load(filepath.Join(dir, "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Gateway.Addr)
	require.Equal(t, "openai", cfg.DefaultLLM)
}

func TestLoad_UnknownLLM(t *testing.T) {
	dir := isolate(t)
	t.Setenv("WIKICHAT_LLM", "llama")

	_, err := Load(filepath.Join(dir, "absent.toml"))
	require.ErrorContains(t, err, `"llama"`)
}
