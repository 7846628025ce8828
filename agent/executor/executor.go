package executor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/harborins/concierge/agent/contract"
)

// Config tunes plan execution.
type Config struct {
	RunTimeout time.Duration `envconfig:"RUN_TIMEOUT" split_words:"true" default:"30s"`
}

// Result is the complete outcome set of one plan execution. Outcomes
// are positionally aligned with the plan's steps; every step gets
// exactly one outcome.
type Result struct {
	Outcomes    []contractx.StepOutcome
	Degradation contractx.RunDegradation
}

// Option customizes an Executor.
type Option func(*Executor)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// Executor runs a plan group by group. Steps inside a group run
// concurrently; the next group starts only after every step of the
// current group has finished.
type Executor struct {
	invoker contractx.ToolInvoker
	cfg     Config
	logger  zerolog.Logger
}

// New builds an Executor around a tool invoker.
func New(invoker contractx.ToolInvoker, cfg Config, opts ...Option) *Executor {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}
	e := &Executor{
		invoker: invoker,
		cfg:     cfg,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute runs every step of the plan under one shared run budget.
// A step failure never aborts the run; remaining steps still execute
// and failures surface in their outcomes. Degradation grades only
// required steps: optional failures cost nothing.
func (e *Executor) Execute(ctx context.Context, plan contractx.ExecutionPlan) Result {
	outcomes := make([]contractx.StepOutcome, len(plan.Steps))
	if plan.Empty() {
		return Result{Outcomes: outcomes, Degradation: contractx.DegradationNone}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RunTimeout)
	defer cancel()

	for group := 0; group < plan.GroupCount(); group++ {
		var wg sync.WaitGroup
		for idx, step := range plan.Steps {
			if step.Group != group {
				continue
			}
			wg.Add(1)
			go func(idx int, step contractx.ExecutionStep) {
				defer wg.Done()
				outcomes[idx] = e.runStep(ctx, step)
			}(idx, step)
		}
		wg.Wait()
	}

	return Result{
		Outcomes:    outcomes,
		Degradation: grade(plan, outcomes),
	}
}

func (e *Executor) runStep(ctx context.Context, step contractx.ExecutionStep) contractx.StepOutcome {
	start := time.Now()
	payload, err := e.invoker.Invoke(ctx, step.Operation, step.Args)
	elapsed := time.Since(start)

	outcome := contractx.StepOutcome{
		Step:    step,
		Payload: payload,
		Elapsed: elapsed,
	}
	if err != nil {
		outcome.Payload = nil
		te := contractx.AsToolError(err)
		if te == nil {
			te = contractx.NewToolError(contractx.ToolErrUnavailable, step.Operation, err)
		}
		outcome.Err = te
		e.logger.Warn().
			Str("operation", step.Operation).
			Int("group", step.Group).
			Bool("required", step.Required).
			Str("kind", string(te.Kind)).
			Dur("elapsed", elapsed).
			Msg("plan step failed")
		return outcome
	}

	e.logger.Debug().
		Str("operation", step.Operation).
		Int("group", step.Group).
		Dur("elapsed", elapsed).
		Msg("plan step completed")
	return outcome
}

// grade classifies the run: none when every required step succeeded,
// total when every required step failed and nothing else succeeded
// either. A surviving optional step keeps the run partial, since its
// data still reaches the response.
func grade(plan contractx.ExecutionPlan, outcomes []contractx.StepOutcome) contractx.RunDegradation {
	required, failedRequired, succeeded := 0, 0, 0
	for i, step := range plan.Steps {
		if outcomes[i].OK() {
			succeeded++
		}
		if !step.Required {
			continue
		}
		required++
		if !outcomes[i].OK() {
			failedRequired++
		}
	}

	switch {
	case failedRequired == 0:
		return contractx.DegradationNone
	case failedRequired == required && succeeded == 0:
		return contractx.DegradationTotal
	default:
		return contractx.DegradationPartial
	}
}
