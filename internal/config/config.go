// Package config loads the synthesis engine configuration: defaults,
// optionally a YAML file, then environment variable overrides, in that
// order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the synthesis core.
type Config struct {
	Tree struct {
		MaxDepth int `yaml:"max_depth"`
		MaxNodes int `yaml:"max_nodes"`
	} `yaml:"tree"`

	Genetic struct {
		PopulationSize   int     `yaml:"population_size"`
		MaxGenerations   int     `yaml:"max_generations"`
		ElitismCount     int     `yaml:"elitism_count"`
		TournamentSize   int     `yaml:"tournament_size"`
		CrossoverRate    float64 `yaml:"crossover_rate"`
		MutationRate     float64 `yaml:"mutation_rate"`
		ParsimonyCoeff   float64 `yaml:"parsimony_coeff"`
		StagnationLimit  int     `yaml:"stagnation_limit"`
		InjectionPortion float64 `yaml:"injection_portion"`
		FitnessTarget    float64 `yaml:"fitness_target"`
		Workers          int     `yaml:"workers"`
		MinTrades        int     `yaml:"min_trades"`
		MaxDrawdown      float64 `yaml:"max_drawdown"`
		InSampleFraction float64 `yaml:"in_sample_fraction"`
	} `yaml:"genetic"`

	NMF struct {
		NumFactors    int     `yaml:"num_factors"`
		MaxIterations int     `yaml:"max_iterations"`
		Tolerance     float64 `yaml:"tolerance"`
		Lambda        float64 `yaml:"lambda"`
		Restarts      int     `yaml:"restarts"`
		GapDistance   float64 `yaml:"gap_distance"`
	} `yaml:"nmf"`

	Validator struct {
		MinSampleTrades      int     `yaml:"min_sample_trades"`
		MaxDailyTrades       float64 `yaml:"max_daily_trades"`
		Folds                int     `yaml:"folds"`
		MinProfitableFolds   int     `yaml:"min_profitable_folds"`
		DegradationFloor     float64 `yaml:"degradation_floor"`
		MinProfitableRegimes int     `yaml:"min_profitable_regimes"`
		MaxRegimeLoss        float64 `yaml:"max_regime_loss"`
		BurnInHours          float64 `yaml:"burn_in_hours"`
	} `yaml:"validator"`

	Simulator struct {
		StartingEquity float64 `yaml:"starting_equity"`
	} `yaml:"simulator"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the tuned defaults every load starts from.
func Default() *Config {
	var cfg Config
	cfg.Tree.MaxDepth = 7
	cfg.Tree.MaxNodes = 63
	cfg.Genetic.PopulationSize = 50
	cfg.Genetic.MaxGenerations = 30
	cfg.Genetic.ElitismCount = 3
	cfg.Genetic.TournamentSize = 3
	cfg.Genetic.CrossoverRate = 0.65
	cfg.Genetic.MutationRate = 0.25
	cfg.Genetic.ParsimonyCoeff = 0.002
	cfg.Genetic.StagnationLimit = 8
	cfg.Genetic.InjectionPortion = 0.30
	cfg.Genetic.FitnessTarget = 0.85
	cfg.Genetic.MinTrades = 5
	cfg.Genetic.MaxDrawdown = 0.25
	cfg.Genetic.InSampleFraction = 0.7
	cfg.NMF.NumFactors = 5
	cfg.NMF.MaxIterations = 500
	cfg.NMF.Tolerance = 1e-4
	cfg.NMF.Lambda = 0.01
	cfg.NMF.Restarts = 3
	cfg.NMF.GapDistance = 2.0
	cfg.Validator.MinSampleTrades = 3
	cfg.Validator.MaxDailyTrades = 50
	cfg.Validator.Folds = 5
	cfg.Validator.MinProfitableFolds = 3
	cfg.Validator.DegradationFloor = 0.5
	cfg.Validator.MinProfitableRegimes = 2
	cfg.Validator.MaxRegimeLoss = 0.05
	cfg.Validator.BurnInHours = 72
	cfg.Simulator.StartingEquity = 10000
	cfg.LogLevel = "info"
	return &cfg
}

// Load builds the configuration: defaults, then the YAML file at path if it
// exists, then environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Warn().Str("path", path).Msg("config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets the most commonly tuned knobs be set without
// editing the config file.
func applyEnvOverrides(cfg *Config) {
	cfg.LogLevel = getEnvWithDefault("SYNTH_LOG_LEVEL", cfg.LogLevel)
	cfg.Genetic.PopulationSize = getEnvIntWithDefault("SYNTH_POPULATION_SIZE", cfg.Genetic.PopulationSize)
	cfg.Genetic.MaxGenerations = getEnvIntWithDefault("SYNTH_MAX_GENERATIONS", cfg.Genetic.MaxGenerations)
	cfg.Genetic.Workers = getEnvIntWithDefault("SYNTH_WORKERS", cfg.Genetic.Workers)
	cfg.Genetic.FitnessTarget = getEnvFloatWithDefault("SYNTH_FITNESS_TARGET", cfg.Genetic.FitnessTarget)
	cfg.NMF.NumFactors = getEnvIntWithDefault("SYNTH_NMF_FACTORS", cfg.NMF.NumFactors)
	cfg.Validator.Folds = getEnvIntWithDefault("SYNTH_WALK_FORWARD_FOLDS", cfg.Validator.Folds)
	cfg.Simulator.StartingEquity = getEnvFloatWithDefault("SYNTH_STARTING_EQUITY", cfg.Simulator.StartingEquity)
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
