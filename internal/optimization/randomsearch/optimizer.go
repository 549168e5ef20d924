// Package randomsearch runs the random search loop: sample candidates around
// the best known point, evaluate them concurrently, and stop once the best
// score goes stale.
package randomsearch

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/logging"
	"github.com/copyleftdev/randsearch/internal/metrics"
	"github.com/copyleftdev/randsearch/internal/optimization"
	"github.com/copyleftdev/randsearch/internal/optimization/convergence"
	"github.com/copyleftdev/randsearch/internal/optimization/sampler"
	"github.com/copyleftdev/randsearch/internal/pointio"
)

// Output line prefixes.
const (
	HeaderExisting = "## Existing points:"
	HeaderNew      = "## New points:"
	PrefixDate     = "## Date and time: "
	PrefixBest     = "## Best point: "
	PrefixWarn     = "## WARN: "
	PrefixError    = "## ERROR: "

	msgSeedOrigin = "No existing points, seeding with origin"
	timeLayout    = "2006-01-02T15:04:05.000000"
)

// State is the lifecycle stage of a search.
type State string

const (
	StateSeeding   State = "seeding"
	StateIterating State = "iterating"
	StateConverged State = "converged"
	StateFailed    State = "failed"
)

// Status is a point-in-time view of a running search.
type Status struct {
	State       State
	Iteration   int
	Evaluations int
	StaleSteps  int
	Best        *optimization.Point
}

// Optimizer implements optimization.Optimizer with random search.
type Optimizer struct {
	config    Config
	seeds     []optimization.Point
	objective optimization.ObjectiveFunction

	sampler Sampler
	console pointio.Sink
	output  pointio.Sink
	logger  *logging.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	// Guards the fields below, which mirror loop state for concurrent readers.
	mu      sync.RWMutex
	status  Status
	history []optimization.Evaluation
}

var _ optimization.Optimizer = (*Optimizer)(nil)

// NewOptimizer creates a search over seeds scored by objective.
func NewOptimizer(config Config, seeds []optimization.Point, objective optimization.ObjectiveFunction, opts ...Option) (*Optimizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if objective == nil {
		return nil, configErr("objective function is required")
	}

	o := &Optimizer{
		config:    config,
		seeds:     seeds,
		objective: objective,
		console:   pointio.Discard,
		output:    pointio.Discard,
		logger:    logging.Nop(),
		now:       time.Now,
		status:    Status{State: StateSeeding},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sampler == nil {
		o.sampler = sampler.NewRandomSphere()
	}
	return o, nil
}

type outcome struct {
	score   float64
	err     error
	elapsed time.Duration
}

// Optimize runs the search until it converges or an evaluation fails. The
// result is returned in both cases.
func (o *Optimizer) Optimize(ctx context.Context) (*optimization.OptimizationResult, error) {
	result := &optimization.OptimizationResult{}

	dim, radii, err := o.seed()
	if err != nil {
		o.setState(StateFailed)
		return result, err
	}

	set := optimization.NewPointSet(o.seeds)
	tracker := convergence.NewTracker(o.config.convergence())
	descending := o.config.Mode.Descending()
	p := o.config.NumProposals

	log := o.logger.WithFields(map[string]interface{}{
		"dimensionality": dim,
		"proposals":      p,
		"mode":           string(o.config.Mode),
	})
	log.Info("Search started", map[string]interface{}{"seeds": set.Len()})
	o.updateStatus(func(s *Status) {
		s.State = StateIterating
		if best, ok := set.Best(descending); ok {
			s.Best = &best
		}
	})

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			o.setState(StateFailed)
			return o.finish(result, set, iteration-1, false), err
		}

		if o.config.PrintTimestamps {
			if err := o.emit(o.output, PrefixDate+o.now().Format(timeLayout)); err != nil {
				return o.fail(result, set, iteration-1, err)
			}
		}

		best, ok := set.Best(descending)
		if !ok {
			best = optimization.Origin(dim, o.config.Mode)
		}

		stale, converged := tracker.Observe(best.Score)
		o.metrics.SetBest(best.Score, tracker.StaleSteps())
		o.updateStatus(func(s *Status) {
			s.StaleSteps = tracker.StaleSteps()
		})

		if converged {
			if err := o.emit(o.output, PrefixBest+best.String()); err != nil {
				return o.fail(result, set, iteration-1, err)
			}
			o.setState(StateConverged)
			log.Info("Search converged", map[string]interface{}{
				"iterations": iteration - 1,
				"best":       best.String(),
			})
			return o.finish(result, set, iteration-1, true), nil
		}

		log.Debug("Iteration", map[string]interface{}{
			"iteration":   iteration,
			"best":        best.String(),
			"stale":       stale,
			"stale_steps": tracker.StaleSteps(),
		})

		// Draw every candidate before dispatch so the sequence depends only on the seed.
		candidates := make([]optimization.Point, p)
		for i := range candidates {
			c, err := o.sampler.Generate(best, radii)
			if err != nil {
				return o.fail(result, set, iteration-1, errors.Wrap(err, errors.KindUnknown, "Could not generate candidate point").
					WithOperation("generate").WithComponent("randomsearch"))
			}
			candidates[i] = c
		}

		outcomes := o.evaluate(ctx, candidates)

		for i, c := range candidates {
			res := outcomes[i]
			o.metrics.ObserveEvaluation(evaluationStatus(ctx, res.err), res.elapsed)

			if res.err != nil {
				o.record(iteration, i, c, res.err)
				reported := o.report(res.err, c)
				log.WithError(res.err).Error("Evaluation failed", map[string]interface{}{
					"iteration": iteration,
					"proposal":  i,
					"point":     c.String(),
				})
				o.setState(StateFailed)
				return o.finish(result, set, iteration, false), reported
			}

			scored := c.WithScore(res.score)
			set.Insert(scored)
			o.record(iteration, i, scored, nil)
			if err := o.emit(o.output, scored.String()); err != nil {
				return o.fail(result, set, iteration, err)
			}
		}

		newBest, _ := set.Best(descending)
		o.metrics.ObserveIteration(newBest.Score, tracker.StaleSteps())
		o.updateStatus(func(s *Status) {
			s.Iteration = iteration
			b := newBest.Clone()
			s.Best = &b
		})
	}
}

// seed validates the seeds, resolves the dimensionality and radii, and prints
// the seed listing.
func (o *Optimizer) seed() (int, optimization.Radii, error) {
	if len(o.seeds) == 0 {
		if err := o.emit(o.console, PrefixWarn+msgSeedOrigin); err != nil {
			return 0, nil, err
		}
	}

	dim, err := optimization.InferDimensionality(o.config.Dimensionality, o.seeds)
	if err != nil {
		return 0, nil, err
	}
	if err := optimization.ValidateDimensions(o.seeds, dim); err != nil {
		return 0, nil, err
	}
	radii, err := optimization.ExpandRadii(o.config.Radii, dim)
	if err != nil {
		return 0, nil, err
	}

	lines := []string{HeaderExisting}
	for _, p := range optimization.NewPointSet(o.seeds).SortedView(o.config.Mode.Descending()) {
		lines = append(lines, p.String())
	}
	lines = append(lines, HeaderNew)
	for _, line := range lines {
		if err := o.emit(o.console, line); err != nil {
			return 0, nil, err
		}
	}
	return dim, radii, nil
}

// evaluate scores candidates concurrently and returns outcomes indexed like
// candidates. All evaluations run to completion; none is cancelled because a
// sibling failed.
func (o *Optimizer) evaluate(ctx context.Context, candidates []optimization.Point) []outcome {
	outcomes := make([]outcome, len(candidates))

	// The group only joins the workers. Failures travel in outcomes so that
	// the first one in generation order, not in completion order, is reported.
	var g errgroup.Group
	for i, c := range candidates {
		g.Go(func() error {
			start := time.Now()
			score, err := o.objective(ctx, c.Coords)
			outcomes[i] = outcome{score: score, err: err, elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait() // always nil
	return outcomes
}

// report writes the diagnostic and the unscored point for a failed
// evaluation, and marks the error as shown.
func (o *Optimizer) report(err error, candidate optimization.Point) error {
	var e *errors.Error
	if !errors.As(err, &e) {
		e = errors.Wrap(err, errors.KindProcessFailure, "Could not evaluate point").
			WithComponent("randomsearch")
	}
	if werr := o.emit(o.output, PrefixError+e.UserMessage()); werr != nil {
		return werr
	}
	if werr := o.emit(o.output, candidate.WithScore(math.NaN()).String()); werr != nil {
		return werr
	}
	return e.MarkReported()
}

func (o *Optimizer) emit(sink pointio.Sink, line string) error {
	if err := sink.WriteLine(line); err != nil {
		return errors.Wrap(err, errors.KindUnknown, "Could not write output").
			WithOperation("emit").WithComponent("randomsearch")
	}
	return nil
}

func (o *Optimizer) fail(result *optimization.OptimizationResult, set *optimization.PointSet, iterations int, err error) (*optimization.OptimizationResult, error) {
	o.setState(StateFailed)
	return o.finish(result, set, iterations, false), err
}

func (o *Optimizer) finish(result *optimization.OptimizationResult, set *optimization.PointSet, iterations int, converged bool) *optimization.OptimizationResult {
	if best, ok := set.Best(o.config.Mode.Descending()); ok {
		result.BestSolution = best.Solution()
	}
	result.History = o.GetHistory()
	result.Iterations = iterations
	result.Converged = converged
	return result
}

func (o *Optimizer) record(iteration, proposal int, p optimization.Point, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.history = append(o.history, optimization.Evaluation{
		Iteration: iteration,
		Proposal:  proposal,
		Solution:  p.Solution(),
		Error:     err,
	})
	if err == nil {
		o.status.Evaluations++
	}
}

func (o *Optimizer) setState(state State) {
	o.updateStatus(func(s *Status) {
		s.State = state
	})
}

func (o *Optimizer) updateStatus(fn func(*Status)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.status)
}

// Status returns a snapshot of the search. It is safe to call while
// Optimize runs.
func (o *Optimizer) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := o.status
	if s.Best != nil {
		b := s.Best.Clone()
		s.Best = &b
	}
	return s
}

// GetBestSolution returns the best known point, or nil while there is none.
func (o *Optimizer) GetBestSolution() *optimization.Solution {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.status.Best == nil {
		return nil
	}
	return o.status.Best.Solution()
}

// GetHistory returns every evaluation in generation order.
func (o *Optimizer) GetHistory() []optimization.Evaluation {
	o.mu.RLock()
	defer o.mu.RUnlock()

	history := make([]optimization.Evaluation, len(o.history))
	copy(history, o.history)
	return history
}

func evaluationStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case ctx.Err() != nil:
		return metrics.StatusCancelled
	case errors.KindOf(err) == errors.KindNoScoreFound:
		return metrics.StatusNoScore
	default:
		return metrics.StatusFailed
	}
}
