// internal/rules/engine.go
package rules

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/advisor/internal/types"
)

/*
 * Evaluation engine.
 *
 * Evaluates an ordered rule list against one EvaluationContext in a single pass:
 *   1. Filter to enabled rules, preserving order, and compile them
 *   2. Match each rule (sequentially, or on a bounded worker pool)
 *   3. Collect advisories in rule order, count evaluated/matched rules
 *   4. Report wall-clock duration of steps 1-3 in fractional milliseconds
 *
 * The Engine holds only immutable configuration (clock, id source, worker
 * count, logger, observer), so concurrent Evaluate calls need no coordination.
 *
 * Parallel passes write each rule's outcome into its own slot and assemble the
 * result afterwards, so advisory order never depends on scheduling.
 *
 * Deadline: when ctx is done mid-pass, no further rules are attempted and the
 * partial result is returned with Truncated set. RulesEvaluated counts only
 * attempted rules and completed advisories are kept.
 *
 * Failures: *types.RuleEvaluationError is recorded in RuleErrors and the pass
 * continues. *types.EngineError aborts the pass and is returned.
 */

// Observer receives pass-level telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveEvaluation(result *types.EvaluationResult, elapsed time.Duration)
	ObserveRuleError(ruleID string, err error)
}

// Engine evaluates rule sets against evaluation contexts.
type Engine struct {
	clock    Clock
	newID    IDSource
	workers  int
	logger   zerolog.Logger
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for advisory timestamps.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDSource sets the advisory id generator.
func WithIDSource(ids IDSource) Option {
	return func(e *Engine) {
		if ids != nil {
			e.newID = ids
		}
	}
}

// WithWorkers sets how many rules may be matched concurrently within one pass.
// Values below 1 are treated as 1 (sequential).
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "engine").Logger()
	}
}

// WithObserver sets a telemetry observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine creates an engine. Defaults: UTC wall clock, UUIDv7 ids,
// sequential matching, no logging.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:   func() time.Time { return time.Now().UTC() },
		newID:   types.NewAdvisoryID,
		workers: 1,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the configured per-pass concurrency.
func (e *Engine) Workers() int {
	return e.workers
}

// Evaluate runs one pass of rules against evalCtx.
func (e *Engine) Evaluate(ctx context.Context, rules []types.Rule, evalCtx *types.EvaluationContext) (*types.EvaluationResult, error) {
	if evalCtx == nil {
		return nil, &types.EngineError{Cause: types.ErrNilContext}
	}
	start := time.Now()

	set, err := CompileSet(rules)
	if err != nil {
		e.logger.Error().Err(err).Msg("rule set rejected")
		return nil, err
	}

	return e.run(ctx, set, evalCtx, start)
}

// EvaluateCompiled runs one pass of a pre-compiled rule set against evalCtx.
func (e *Engine) EvaluateCompiled(ctx context.Context, set *RuleSet, evalCtx *types.EvaluationContext) (*types.EvaluationResult, error) {
	if evalCtx == nil {
		return nil, &types.EngineError{Cause: types.ErrNilContext}
	}
	if set == nil {
		set = &RuleSet{}
	}
	return e.run(ctx, set, evalCtx, time.Now())
}

// outcome is one rule's slot in a pass.
type outcome struct {
	attempted bool
	advisory  *types.Advisory
	err       error
}

func (e *Engine) run(ctx context.Context, set *RuleSet, evalCtx *types.EvaluationContext, start time.Time) (*types.EvaluationResult, error) {
	outcomes := make([]outcome, len(set.rules))

	var err error
	if e.workers > 1 && len(set.rules) > 1 {
		err = e.matchParallel(ctx, set, evalCtx, outcomes)
	} else {
		err = e.matchSequential(ctx, set, evalCtx, outcomes)
	}
	if err != nil {
		e.logger.Error().Err(err).Msg("evaluation aborted")
		return nil, err
	}

	result := &types.EvaluationResult{
		Advisories: make([]types.Advisory, 0),
		Context:    evalCtx,
	}
	for i, o := range outcomes {
		if !o.attempted {
			result.Truncated = true
			continue
		}
		result.RulesEvaluated++
		if o.err != nil {
			ruleID := set.rules[i].Rule.ID
			result.RuleErrors = append(result.RuleErrors, types.RuleError{RuleID: ruleID, Error: o.err.Error()})
			e.logger.Warn().Str("rule_id", ruleID).Err(o.err).Msg("rule evaluation failed")
			if e.observer != nil {
				e.observer.ObserveRuleError(ruleID, o.err)
			}
			continue
		}
		if o.advisory != nil {
			result.Advisories = append(result.Advisories, *o.advisory)
		}
	}
	result.RulesMatched = len(result.Advisories)

	elapsed := time.Since(start)
	result.EvaluationTimeMs = float64(elapsed.Nanoseconds()) / float64(time.Millisecond)

	if result.Truncated {
		e.logger.Warn().
			Int("rules_evaluated", result.RulesEvaluated).
			Int("rules_total", len(set.rules)).
			Msg("evaluation deadline exceeded, returning partial result")
	}
	e.logger.Debug().
		Int("rules_evaluated", result.RulesEvaluated).
		Int("rules_matched", result.RulesMatched).
		Float64("evaluation_time_ms", result.EvaluationTimeMs).
		Msg("evaluation complete")

	if e.observer != nil {
		e.observer.ObserveEvaluation(result, elapsed)
	}
	return result, nil
}

func (e *Engine) matchSequential(ctx context.Context, set *RuleSet, evalCtx *types.EvaluationContext, outcomes []outcome) error {
	for i, rule := range set.rules {
		if ctx.Err() != nil {
			return nil
		}
		adv, err := Match(rule, evalCtx, e.newID, e.clock)
		if isFatal(err) {
			return err
		}
		outcomes[i] = outcome{attempted: true, advisory: adv, err: err}
	}
	return nil
}

func (e *Engine) matchParallel(ctx context.Context, set *RuleSet, evalCtx *types.EvaluationContext, outcomes []outcome) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, rule := range set.rules {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			adv, err := Match(rule, evalCtx, e.newID, e.clock)
			if isFatal(err) {
				return err
			}
			outcomes[i] = outcome{attempted: true, advisory: adv, err: err}
			return nil
		})
	}
	return g.Wait()
}

func isFatal(err error) bool {
	var engineErr *types.EngineError
	return errors.As(err, &engineErr)
}
