package randomsearch

import (
	"time"

	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/logging"
	"github.com/copyleftdev/randsearch/internal/metrics"
	"github.com/copyleftdev/randsearch/internal/optimization"
	"github.com/copyleftdev/randsearch/internal/optimization/convergence"
	"github.com/copyleftdev/randsearch/internal/pointio"
)

// Config holds the search parameters.
type Config struct {
	// Mode is the optimization direction.
	Mode optimization.Mode

	// Dimensionality of the search space. Zero infers it from the first seed.
	Dimensionality int

	// Radii are the per-axis sphere scales as supplied; the last value
	// repeats to fill the remaining dimensions.
	Radii []float64

	// NumProposals is the number of candidates evaluated concurrently per
	// iteration.
	NumProposals int

	// StaleThreshold and StaleCount control convergence.
	StaleThreshold float64
	StaleCount     int

	// PrintTimestamps emits a "## Date and time:" line before every iteration.
	PrintTimestamps bool
}

// Validate checks the configuration. Failures are configuration errors.
func (c Config) Validate() error {
	if c.Mode != optimization.Minimize && c.Mode != optimization.Maximize {
		return configErr("optimization type must be %q or %q, got %q",
			optimization.Minimize, optimization.Maximize, c.Mode)
	}
	if c.Dimensionality < 0 {
		return configErr("--dimensionality must be greater than zero")
	}
	if len(c.Radii) == 0 {
		return configErr("--radii must contain at least one value")
	}
	if c.NumProposals < 1 {
		return configErr("--num-proposals must be greater than zero")
	}
	if err := c.convergence().Validate(); err != nil {
		return errors.Wrap(err, errors.KindConfig, "invalid convergence settings").
			WithComponent("randomsearch")
	}
	return nil
}

func (c Config) convergence() convergence.Config {
	return convergence.Config{
		Threshold:  c.StaleThreshold,
		StaleCount: c.StaleCount,
		Mode:       c.Mode,
	}
}

func configErr(format string, args ...interface{}) error {
	return errors.Errorf(errors.KindConfig, format, args...).WithComponent("randomsearch")
}

// Sampler proposes a candidate around a reference point.
type Sampler interface {
	Generate(reference optimization.Point, radii optimization.Radii) (optimization.Point, error)
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithSampler sets the candidate generator. The default is randomly seeded.
func WithSampler(s Sampler) Option {
	return func(o *Optimizer) {
		o.sampler = s
	}
}

// WithConsole sets the sink for the seed listing and headers.
func WithConsole(s pointio.Sink) Option {
	return func(o *Optimizer) {
		o.console = s
	}
}

// WithOutput sets the sink for new points, diagnostics and the result line.
func WithOutput(s pointio.Sink) Option {
	return func(o *Optimizer) {
		o.output = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Optimizer) {
		o.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Optimizer) {
		o.metrics = r
	}
}

// WithClock replaces time.Now for timestamp lines.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) {
		o.now = now
	}
}
