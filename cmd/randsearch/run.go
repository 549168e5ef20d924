package main

import (
	"context"
	"io"

	"github.com/copyleftdev/randsearch/internal/config"
	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/logging"
	"github.com/copyleftdev/randsearch/internal/metrics"
	"github.com/copyleftdev/randsearch/internal/optimization"
	"github.com/copyleftdev/randsearch/internal/optimization/evaluator"
	"github.com/copyleftdev/randsearch/internal/optimization/randomsearch"
	"github.com/copyleftdev/randsearch/internal/optimization/sampler"
	"github.com/copyleftdev/randsearch/internal/pointio"
	"github.com/copyleftdev/randsearch/internal/server"
)

type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// run wires the search together and blocks until it finishes.
func run(ctx context.Context, cfg *config.Config, s streams) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		Writer: s.stderr,
	})
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, "could not open log output").WithComponent("cli")
	}

	searchCfg, err := cfg.Search()
	if err != nil {
		return err
	}
	tmpl, err := evaluator.ParseTemplate(cfg.Command)
	if err != nil {
		return err
	}

	seeds, err := pointio.ReadPointsFile(cfg.Input, s.stdin)
	if err != nil {
		return err
	}
	// Input problems are reported by the search, after its seeding warning.
	if dim, err := optimization.InferDimensionality(searchCfg.Dimensionality, seeds); err == nil && dim > 0 {
		if err := tmpl.CheckDimensionality(dim); err != nil {
			return err
		}
	}

	console := pointio.NewConsoleSink(s.stdout)
	var output pointio.Sink = console
	if cfg.Append {
		file, err := pointio.OpenAppend(cfg.Input)
		if err != nil {
			return errors.Wrap(err, errors.KindInputFormat, "Could not reopen input for append").WithComponent("cli")
		}
		defer func() {
			if err := file.Close(); err != nil {
				logger.WithError(err).Error("Failed to close appended input")
			}
		}()
		output = pointio.TeeSink{file, console}
	}

	var sphere *sampler.Sphere
	if cfg.RNGSeedSet {
		sphere = sampler.NewSphere(uint64(cfg.RNGSeed))
	} else {
		sphere = sampler.NewRandomSphere()
	}

	recorder := metrics.NewRecorder()
	command := evaluator.NewCommand(tmpl,
		evaluator.WithStderr(s.stderr),
		evaluator.WithTimeout(cfg.EvalTimeout),
		evaluator.WithLogger(logging.NewZapLogger(logger.WithField("component", "evaluator"))),
	)

	search, err := randomsearch.NewOptimizer(searchCfg, seeds, command.Evaluate,
		randomsearch.WithSampler(sphere),
		randomsearch.WithConsole(console),
		randomsearch.WithOutput(output),
		randomsearch.WithLogger(logger.WithField("component", "randomsearch")),
		randomsearch.WithMetrics(recorder),
	)
	if err != nil {
		return err
	}

	if cfg.Status.Addr != "" {
		srv := server.NewServer(search, logger.WithField("component", "server"), recorder, server.Options{
			ReadTimeout:  cfg.Status.ReadTimeout,
			WriteTimeout: cfg.Status.WriteTimeout,
		})
		if err := srv.Start(cfg.Status.Addr); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Status.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Status server forced to shut down")
			}
		}()
	}

	_, err = search.Optimize(ctx)
	return err
}
