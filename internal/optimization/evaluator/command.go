// Package evaluator scores candidate points by running an external objective
// program and reading the score from its standard output.
package evaluator

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/copyleftdev/randsearch/internal/errors"
)

// MsgNoScore is shown when the objective printed nothing parseable.
const MsgNoScore = "Could not find evaluated point value in process output."

// waitDelay bounds how long stdout may stay open after the objective exits.
const waitDelay = 2 * time.Second

type scoreResult struct {
	score float64
	found bool
	err   error
}

// Command runs one objective process per evaluation.
// It is safe for concurrent use.
type Command struct {
	template *Template
	stderr   io.Writer
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Command.
type Option func(*Command)

// WithStderr sets where the objective's standard error goes. Defaults to os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(c *Command) {
		c.stderr = w
	}
}

// WithTimeout bounds each evaluation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Command) {
		c.timeout = d
	}
}

// WithLogger sets the logger for per-process debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Command) {
		c.logger = logger
	}
}

// NewCommand creates an evaluator for the parsed template.
func NewCommand(template *Template, opts ...Option) *Command {
	c := &Command{
		template: template,
		stderr:   os.Stderr,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate renders the command for coords, runs it to completion and returns
// the score it printed. Failures are KindProcessFailure or KindNoScoreFound.
func (c *Command) Evaluate(ctx context.Context, coords []float64) (float64, error) {
	rendered, err := c.template.Render(coords)
	if err != nil {
		return 0, c.failure(err, "Could not render evaluation command")
	}
	argv, err := shlex.Split(rendered)
	if err != nil {
		return 0, c.failure(err, "Could not split evaluation command")
	}
	if len(argv) == 0 {
		return 0, errors.New(errors.KindProcessFailure, "Evaluation command is empty").
			WithOperation("evaluate").WithComponent("evaluator")
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stderr = c.stderr
	isolate(cmd)
	// Wait closes stdout waitDelay after the objective exits, even while a
	// descendant still holds it open.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return 0, c.failure(err, "Could not run evaluation command")
	}
	log := c.logger.With(zap.Int("pid", cmd.Process.Pid))
	log.Debug("objective started", zap.Strings("argv", argv))

	read := make(chan scoreResult, 1)
	go func() {
		var r scoreResult
		r.score, r.found, r.err = ReadScore(pr)
		read <- r
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	if stderrors.Is(waitErr, exec.ErrWaitDelay) {
		log.Debug("objective left a descendant holding stdout")
		waitErr = nil
	}
	res := <-read
	score, found, readErr := res.score, res.found, res.err
	elapsed := time.Since(start)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		log.Debug("objective timed out", zap.Duration("elapsed", elapsed))
		return 0, c.failure(runCtx.Err(), "Evaluation command timed out")
	case waitErr != nil:
		log.Debug("objective failed", zap.Error(waitErr), zap.Duration("elapsed", elapsed))
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			return 0, c.failure(waitErr, "Evaluation command exited unsuccessfully")
		}
		return 0, c.failure(waitErr, "Could not run evaluation command")
	case readErr != nil:
		return 0, c.failure(readErr, "Could not read evaluation command output")
	case !found:
		log.Debug("objective printed no score", zap.Duration("elapsed", elapsed))
		return 0, errors.New(errors.KindNoScoreFound, MsgNoScore).
			WithOperation("evaluate").WithComponent("evaluator")
	}

	log.Debug("objective finished", zap.Float64("score", score), zap.Duration("elapsed", elapsed))
	return score, nil
}

func (c *Command) failure(err error, msg string) error {
	return errors.Wrap(err, errors.KindProcessFailure, msg).
		WithOperation("evaluate").WithComponent("evaluator")
}
