package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 7, cfg.Tree.MaxDepth)
	assert.Equal(t, 63, cfg.Tree.MaxNodes)
	assert.Equal(t, 50, cfg.Genetic.PopulationSize)
	assert.Equal(t, 30, cfg.Genetic.MaxGenerations)
	assert.InDelta(t, 0.65, cfg.Genetic.CrossoverRate, 1e-12)
	assert.Equal(t, 5, cfg.NMF.NumFactors)
	assert.Equal(t, 5, cfg.Validator.Folds)
	assert.InDelta(t, 72.0, cfg.Validator.BurnInHours, 1e-12)
	assert.InDelta(t, 10000.0, cfg.Simulator.StartingEquity, 1e-12)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Genetic.PopulationSize, cfg.Genetic.PopulationSize)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synth.yaml")
	body := `
genetic:
  population_size: 80
  crossover_rate: 0.7
nmf:
  num_factors: 4
validator:
  folds: 6
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Genetic.PopulationSize)
	assert.InDelta(t, 0.7, cfg.Genetic.CrossoverRate, 1e-12)
	assert.Equal(t, 4, cfg.NMF.NumFactors)
	assert.Equal(t, 6, cfg.Validator.Folds)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched knobs keep their defaults.
	assert.Equal(t, Default().Genetic.MaxGenerations, cfg.Genetic.MaxGenerations)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("genetic: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("genetic:\n  population_size: 80\n"), 0o644))

	t.Setenv("SYNTH_POPULATION_SIZE", "120")
	t.Setenv("SYNTH_LOG_LEVEL", "warn")
	t.Setenv("SYNTH_STARTING_EQUITY", "25000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Genetic.PopulationSize)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.InDelta(t, 25000.0, cfg.Simulator.StartingEquity, 1e-12)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("SYNTH_POPULATION_SIZE", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Genetic.PopulationSize, cfg.Genetic.PopulationSize)
}
