package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/harborins/concierge/agent/contract"
	"github.com/harborins/concierge/agent/executor"
	"github.com/harborins/concierge/agent/planner"
	"github.com/harborins/concierge/agent/synth"
)

// Request is one customer message plus whatever identity the transport
// layer already knows.
type Request struct {
	Message           string
	SessionCustomerID string
}

// Result is the rendered response plus the run's diagnostic trace.
type Result struct {
	Response contractx.RenderedResponse
	Trace    RunTrace
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithSessionStore enables HandleSession lookups.
func WithSessionStore(store contractx.SessionStore) Option {
	return func(o *Orchestrator) {
		o.sessions = store
	}
}

// Orchestrator is the engine facade: one call takes a raw customer
// message through classification, planning, execution, aggregation and
// synthesis.
type Orchestrator struct {
	classifier contractx.Classifier
	planner    planner.Planner
	executor   *executor.Executor
	synth      *synth.Synthesizer
	sessions   contractx.SessionStore

	graphRunner compose.Runnable[Request, Result]

	logger zerolog.Logger
	now    func() time.Time
}

// New wires the pipeline and compiles its graph once.
func New(
	classifier contractx.Classifier,
	plnr planner.Planner,
	exec *executor.Executor,
	synthesizer *synth.Synthesizer,
	opts ...Option,
) (*Orchestrator, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if exec == nil {
		return nil, errors.New("executor is required")
	}
	if synthesizer == nil {
		return nil, errors.New("synthesizer is required")
	}

	o := &Orchestrator{
		classifier: classifier,
		planner:    plnr,
		executor:   exec,
		synth:      synthesizer,
		logger:     log.Logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle runs one message. sessionCustomerID may be empty; identity
// then falls back to whatever the message itself carries.
func (o *Orchestrator) Handle(ctx context.Context, message, sessionCustomerID string) (Result, error) {
	return o.graphRunner.Invoke(ctx, Request{
		Message:           message,
		SessionCustomerID: sessionCustomerID,
	})
}

// HandleSession resolves the session binding first, then runs the
// message. A missing or failing session lookup downgrades to an
// unauthenticated run instead of failing it.
func (o *Orchestrator) HandleSession(ctx context.Context, sessionID, message string) (Result, error) {
	customerID := ""
	if o.sessions != nil && sessionID != "" {
		rec, err := o.sessions.Load(ctx, sessionID)
		switch {
		case err != nil:
			o.logger.Warn().Err(err).Str("session_id", sessionID).
				Msg("session lookup failed, continuing unauthenticated")
		case rec != nil:
			customerID = rec.CustomerID
		}
	}
	return o.Handle(ctx, message, customerID)
}
