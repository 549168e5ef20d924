// Package config holds the run configuration. Values come from the
// environment first and are then overridden by command-line flags.
package config

import (
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/optimization"
	"github.com/copyleftdev/randsearch/internal/optimization/randomsearch"
)

// Environment variables that need presence checks beyond their value.
const (
	envDimensionality = "RANDSEARCH_DIMENSIONALITY"
	envRNGSeed        = "RANDSEARCH_RNG_SEED"
)

type Config struct {
	Dimensionality   int           `env:"RANDSEARCH_DIMENSIONALITY"`
	Radii            string        `env:"RANDSEARCH_RADII" envDefault:"1"`
	RNGSeed          int64         `env:"RANDSEARCH_RNG_SEED"`
	Input            string        `env:"RANDSEARCH_INPUT" envDefault:"-"`
	Append           bool          `env:"RANDSEARCH_APPEND" envDefault:"false"`
	OptimizationType string        `env:"RANDSEARCH_OPTIMIZATION_TYPE" envDefault:"min"`
	StaleThreshold   float64       `env:"RANDSEARCH_STALE_THRESHOLD" envDefault:"0"`
	StaleCount       int           `env:"RANDSEARCH_STALE_COUNT" envDefault:"10"`
	NumProposals     int           `env:"RANDSEARCH_NUM_PROPOSALS" envDefault:"1"`
	PrintDateAndTime bool          `env:"RANDSEARCH_PRINT_DATE_AND_TIME" envDefault:"false"`
	EvalTimeout      time.Duration `env:"RANDSEARCH_EVAL_TIMEOUT" envDefault:"0s"`

	// Command is the objective command template, taken from the arguments.
	Command string

	// DimensionalitySet and RNGSeedSet record whether the value was given at
	// all, since zero is meaningful for neither.
	DimensionalitySet bool
	RNGSeedSet        bool

	Status struct {
		Addr            string        `env:"RANDSEARCH_STATUS_ADDR"`
		ReadTimeout     time.Duration `env:"RANDSEARCH_STATUS_READ_TIMEOUT" envDefault:"10s"`
		WriteTimeout    time.Duration `env:"RANDSEARCH_STATUS_WRITE_TIMEOUT" envDefault:"10s"`
		ShutdownTimeout time.Duration `env:"RANDSEARCH_STATUS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"warn"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "invalid environment configuration").
			WithComponent("config")
	}

	_, cfg.DimensionalitySet = os.LookupEnv(envDimensionality)
	_, cfg.RNGSeedSet = os.LookupEnv(envRNGSeed)

	return cfg, nil
}

// Validate checks every option. Failures are configuration errors.
func (c *Config) Validate() error {
	switch {
	case c.DimensionalitySet && c.Dimensionality < 1:
		return invalid("--dimensionality must be greater than zero")
	case math.IsNaN(c.StaleThreshold) || math.IsInf(c.StaleThreshold, 0) || c.StaleThreshold < 0:
		return invalid("--stale-threshold must be a finite non-negative number")
	case c.StaleCount < 1:
		return invalid("--stale-count must be greater than zero")
	case c.NumProposals < 1:
		return invalid("--num-proposals must be greater than zero")
	case c.EvalTimeout < 0:
		return invalid("--eval-timeout must not be negative")
	case c.Append && (c.Input == "" || c.Input == "-"):
		return invalid("--append requires --input to name a file")
	case c.Command == "":
		return invalid("an evaluation command is required")
	}

	if _, err := optimization.ParseMode(c.OptimizationType); err != nil {
		return errors.Wrap(err, errors.KindConfig, "invalid --optimization-type").WithComponent("config")
	}
	if _, err := optimization.ParseRadii(c.Radii); err != nil {
		return err
	}
	return nil
}

// Search builds the search configuration. Call Validate first.
func (c *Config) Search() (randomsearch.Config, error) {
	mode, err := optimization.ParseMode(c.OptimizationType)
	if err != nil {
		return randomsearch.Config{}, errors.Wrap(err, errors.KindConfig, "invalid --optimization-type").
			WithComponent("config")
	}
	radii, err := optimization.ParseRadii(c.Radii)
	if err != nil {
		return randomsearch.Config{}, err
	}

	sc := randomsearch.Config{
		Mode:            mode,
		Radii:           radii,
		NumProposals:    c.NumProposals,
		StaleThreshold:  c.StaleThreshold,
		StaleCount:      c.StaleCount,
		PrintTimestamps: c.PrintDateAndTime,
	}
	if c.DimensionalitySet {
		sc.Dimensionality = c.Dimensionality
	}
	return sc, nil
}

func invalid(msg string) error {
	return errors.New(errors.KindConfig, msg).WithComponent("config")
}
