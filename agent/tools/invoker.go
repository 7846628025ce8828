package tools

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/harborins/concierge/agent/contract"
)

// InvokerConfig tunes the retry/backoff discipline of the tool invoker.
type InvokerConfig struct {
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"3"`
	BaseDelay      time.Duration `envconfig:"BASE_DELAY" split_words:"true" default:"100ms"`
	Multiplier     float64       `envconfig:"MULTIPLIER" split_words:"true" default:"2.0"`
	Jitter         float64       `envconfig:"JITTER" split_words:"true" default:"0.2"`
	AttemptTimeout time.Duration `envconfig:"ATTEMPT_TIMEOUT" split_words:"true" default:"5s"`
}

func (c InvokerConfig) normalized() InvokerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		c.Jitter = 0.2
	}
	return c
}

// Observer receives one timing/outcome observation per attempt.
type Observer func(operation string, attempt int, elapsed time.Duration, err error)

// InvokerOption customizes an Invoker.
type InvokerOption func(*Invoker)

func WithObserver(obs Observer) InvokerOption {
	return func(i *Invoker) {
		if obs != nil {
			i.observer = obs
		}
	}
}

func WithLogger(logger zerolog.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// Invoker calls a single named remote operation with exponential backoff
// on transient failures. It knows nothing about intents or plans.
type Invoker struct {
	gateway  contractx.ToolGateway
	cfg      InvokerConfig
	observer Observer
	logger   zerolog.Logger
}

var _ contractx.ToolInvoker = (*Invoker)(nil)

// NewInvoker wraps a gateway with retry discipline.
func NewInvoker(gateway contractx.ToolGateway, cfg InvokerConfig, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		gateway:  gateway,
		cfg:      cfg.normalized(),
		observer: func(string, int, time.Duration, error) {},
		logger:   log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	return inv
}

// Invoke calls one operation. Transient failures are retried with
// exponential backoff and jitter; not_found and invalid_request are
// terminal on the first occurrence. When retries exhaust, the failure
// surfaces as unavailable. The returned error is always a *ToolError
// carrying the attempt count.
func (i *Invoker) Invoke(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	var last *contractx.ToolError

	for attempt := 1; attempt <= i.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := i.sleep(ctx, attempt); err != nil {
				return nil, &contractx.ToolError{
					Kind:      contractx.ToolErrUnavailable,
					Operation: operation,
					Attempts:  attempt - 1,
					Cause:     last.Cause,
				}
			}
		}

		attemptCtx := ctx
		cancel := func() {}
		if i.cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, i.cfg.AttemptTimeout)
		}

		start := time.Now()
		payload, err := i.gateway.Call(attemptCtx, operation, args)
		elapsed := time.Since(start)
		cancel()

		i.observer(operation, attempt, elapsed, err)

		if err == nil {
			i.logger.Debug().
				Str("operation", operation).
				Int("attempt", attempt).
				Dur("elapsed", elapsed).
				Msg("tool call succeeded")
			return payload, nil
		}

		if ctx.Err() != nil {
			// Run budget spent; the pending step surfaces as unavailable.
			return nil, &contractx.ToolError{
				Kind:      contractx.ToolErrUnavailable,
				Operation: operation,
				Attempts:  attempt,
				Cause:     err,
			}
		}

		last = classify(operation, err)
		i.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Str("kind", string(last.Kind)).
			Err(err).
			Msg("tool call failed")

		if !last.Kind.Retryable() {
			last.Attempts = attempt
			return nil, last
		}
	}

	// Retries exhausted on a transient failure: escalate to unavailable.
	return nil, &contractx.ToolError{
		Kind:      contractx.ToolErrUnavailable,
		Operation: operation,
		Attempts:  i.cfg.MaxAttempts,
		Cause:     last.Cause,
	}
}

// classify maps a gateway failure onto the four-way taxonomy. Gateways
// that already classified keep their kind; an expired attempt timeout and
// anything unclassified default to transient so they get the retry budget
// before escalating to unavailable.
func classify(operation string, err error) *contractx.ToolError {
	if te := contractx.AsToolError(err); te != nil {
		if te.Operation == "" {
			te.Operation = operation
		}
		return te
	}
	return contractx.NewToolError(contractx.ToolErrTransient, operation, err)
}

func (i *Invoker) sleep(ctx context.Context, attempt int) error {
	delay := i.cfg.BaseDelay
	for n := 2; n < attempt; n++ {
		delay = time.Duration(float64(delay) * i.cfg.Multiplier)
	}
	if i.cfg.Jitter > 0 {
		// Jitter source is local to this invocation; nothing shared
		// across concurrent invocations.
		spread := 1 + i.cfg.Jitter*(2*rand.Float64()-1)
		delay = time.Duration(float64(delay) * spread)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
