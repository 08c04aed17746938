package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing addr", func(c *Config) { c.Server.Addr = "" }},
		{"no db path", func(c *Config) { c.Database.Path = "" }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 1 }},
		{"zero session ttl", func(c *Config) { c.Auth.SessionTTL = 0 }},
		{"zero volatility", func(c *Config) { c.Market.Volatility = 0 }},
		{"no underlyings", func(c *Config) { c.Market.Underlyings = nil }},
		{"negative base price", func(c *Config) {
			c.Market.Underlyings = map[string]Underlying{"SPY": {BasePrice: -1, StrikeStep: 5}}
		}},
		{"slippage too high", func(c *Config) { c.Paper.SlippageRate = 0.5 }},
		{"zero starting cash", func(c *Config) { c.Paper.StartingCash = 0 }},
		{"zero max order qty", func(c *Config) { c.Paper.MaxOrderQty = 0 }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInMemorySkipsPath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Database.Path = ""
	cfg.Database.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTripYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "buddy.yaml")
	cfg := Default()
	cfg.Server.Addr = ":9090"
	cfg.Paper.SlippageRate = 0.002

	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestSaveLoadRoundTripJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "buddy.json")
	cfg := Default()
	cfg.Market.Seed = 99

	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":3000\"\n"), 0644))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":3000", got.Server.Addr)
	assert.Equal(t, Default().Paper.SlippageRate, got.Paper.SlippageRate)
}

func TestLoadDurationStrings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "durations.yaml")
	doc := "server:\n  read_timeout: 30s\nauth:\n  session_ttl: 2h\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Duration(30*time.Second), got.Server.ReadTimeout)
	assert.Equal(t, Duration(2*time.Hour), got.Auth.SessionTTL)
}

func TestLoadDurationBareInt(t *testing.T) {
	t.Parallel()

	// Old files wrote durations as nanosecond integers.
	path := filepath.Join(t.TempDir(), "durations.yaml")
	doc := "auth:\n  session_ttl: 3600000000000\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Duration(time.Hour), got.Auth.SessionTTL)
}

func TestLoadBadDuration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "durations.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  read_timeout: soon\n"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestDurationWritesStrings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "buddy.yaml")
	require.NoError(t, Default().SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "read_timeout: 10s")
	assert.Contains(t, string(data), "session_ttl: 24h0m0s")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml or json"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}
