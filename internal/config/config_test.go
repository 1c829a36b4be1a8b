package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Resolver.NominatimBaseURL)
	assert.Equal(t, "he", cfg.Resolver.Language)
	assert.Equal(t, 3000, cfg.Resolver.FallbackRadiusM)
	assert.Equal(t, 3, cfg.Resolver.FallbackMax)
	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.Overpass.BaseURL)
	assert.Equal(t, 20, cfg.Overpass.TimeoutSecs)
	assert.InDelta(t, 0.05, cfg.Regional.BBoxMargin, 0.001)
	assert.Equal(t, 500, cfg.TelAviv.FullScanMax)
	assert.Equal(t, 2000, cfg.Pipeline.BaseRadiusM)
	assert.Equal(t, []int{3000, 5000}, cfg.Pipeline.ExpansionRadiiM)
	assert.Equal(t, 5000, cfg.Pipeline.WideRadiusM)
	assert.Equal(t, 3, cfg.Pipeline.MinResults)
	assert.Equal(t, 5, cfg.Pipeline.MaxResults)
	assert.InDelta(t, 50, cfg.Pipeline.DedupThresholdM, 0.001)
	assert.Equal(t, []string{"city-authoritative", "regional", "national-search", "open-data"}, cfg.Pipeline.PriorityOrder)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  base_radius_m: 1500
  max_results: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1500, cfg.Pipeline.BaseRadiusM)
	assert.Equal(t, 10, cfg.Pipeline.MaxResults)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Pipeline.MinResults)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SHELTER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("SHELTER_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Pipeline.BaseRadiusM = 2000
	cfg.Pipeline.ExpansionRadiiM = []int{3000, 5000}
	cfg.Pipeline.MinResults = 3
	cfg.Pipeline.MaxResults = 5
	cfg.Pipeline.DedupThresholdM = 50
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateLookup_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("lookup"))
}

func TestValidateLookup_BadRadius(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.BaseRadiusM = 0

	err := cfg.Validate("lookup")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base_radius_m")
}

func TestValidateLookup_ExpansionBelowBase(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.ExpansionRadiiM = []int{1000}

	err := cfg.Validate("lookup")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expansion_radii_m")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
