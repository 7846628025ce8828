package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/harborins/concierge/agent/aggregate"
	contractx "github.com/harborins/concierge/agent/contract"
	"github.com/harborins/concierge/agent/executor"
	"github.com/harborins/concierge/agent/identity"
)

// runState threads one request through the pipeline nodes.
type runState struct {
	RunID             string
	StartedAt         time.Time
	Message           string
	SessionCustomerID string

	Identity contractx.CustomerIdentity
	Intent   contractx.Intent
	Plan     contractx.ExecutionPlan
	Exec     executor.Result
	Facts    contractx.AggregatedFacts
	Response contractx.RenderedResponse
}

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[Request, Result], error) {
	graph := compose.NewGraph[Request, Result]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in Request) (*runState, error) {
			if strings.TrimSpace(in.Message) == "" {
				return nil, fmt.Errorf("%w: message is required", contractx.ErrValidation)
			}
			return &runState{
				RunID:             uuid.NewString(),
				StartedAt:         o.now(),
				Message:           in.Message,
				SessionCustomerID: in.SessionCustomerID,
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_identity",
		compose.InvokableLambda(func(ctx context.Context, in *runState) (*runState, error) {
			in.Identity = identity.Resolve(in.SessionCustomerID, identity.ParseIdentifier(in.Message))
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_identity: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *runState) (*runState, error) {
			intent, err := o.classifier.Classify(ctx, in.Message)
			if err != nil {
				return nil, fmt.Errorf("classify intent: %w", err)
			}
			in.Intent = intent
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode("plan_steps",
		compose.InvokableLambda(func(ctx context.Context, in *runState) (*runState, error) {
			intent := in.Intent
			if intent.Entities == nil {
				intent.Entities = map[string]string{}
			}
			if _, ok := intent.Entities["question"]; !ok {
				intent.Entities["question"] = in.Message
			}
			in.Intent = intent
			in.Plan = o.planner.Plan(intent, in.Identity)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node plan_steps: %w", err)
	}

	if err := graph.AddLambdaNode("execute_plan",
		compose.InvokableLambda(func(ctx context.Context, in *runState) (*runState, error) {
			in.Exec = o.executor.Execute(ctx, in.Plan)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_plan: %w", err)
	}

	if err := graph.AddLambdaNode("aggregate_results",
		compose.InvokableLambda(func(ctx context.Context, in *runState) (*runState, error) {
			in.Facts = aggregate.Build(in.Exec.Outcomes)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node aggregate_results: %w", err)
	}

	if err := graph.AddLambdaNode("synthesize_response",
		compose.InvokableLambda(func(ctx context.Context, in *runState) (Result, error) {
			in.Response = o.synth.Synthesize(ctx, in.Plan, in.Facts, in.Exec.Degradation)
			return o.finish(in), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node synthesize_response: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "resolve_identity"},
		{"resolve_identity", "classify_intent"},
		{"classify_intent", "plan_steps"},
		{"plan_steps", "execute_plan"},
		{"execute_plan", "aggregate_results"},
		{"aggregate_results", "synthesize_response"},
		{"synthesize_response", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

func (o *Orchestrator) finish(in *runState) Result {
	trace := RunTrace{
		RunID:          in.RunID,
		Intent:         in.Plan.Intent,
		IntentSource:   in.Intent.Source,
		IdentitySource: in.Identity.Source,
		NeedsIdentity:  in.Plan.NeedsIdentity,
		Degradation:    in.Exec.Degradation,
		ResponseKind:   in.Response.Kind,
		Steps:          stepTimings(in.Exec.Outcomes),
		StartedAt:      in.StartedAt,
		Elapsed:        o.now().Sub(in.StartedAt),
	}

	o.logger.Info().
		Str("run_id", trace.RunID).
		Str("intent", string(trace.Intent)).
		Str("intent_source", string(trace.IntentSource)).
		Str("identity_source", string(trace.IdentitySource)).
		Str("degradation", string(trace.Degradation)).
		Str("response_kind", string(trace.ResponseKind)).
		Int("steps", len(trace.Steps)).
		Dur("elapsed", trace.Elapsed).
		Msg("run completed")

	return Result{Response: in.Response, Trace: trace}
}
