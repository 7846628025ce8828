package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/harborins/concierge/agent/contract"
)

// recordingInvoker records start/finish instants per operation and can
// delay or fail selected operations.
type recordingInvoker struct {
	mu       sync.Mutex
	starts   map[string]time.Time
	finishes map[string]time.Time
	delays   map[string]time.Duration
	failures map[string]*contractx.ToolError
}

func newRecordingInvoker() *recordingInvoker {
	return &recordingInvoker{
		starts:   map[string]time.Time{},
		finishes: map[string]time.Time{},
		delays:   map[string]time.Duration{},
		failures: map[string]*contractx.ToolError{},
	}
}

func (r *recordingInvoker) Invoke(ctx context.Context, operation string, _ map[string]any) (map[string]any, error) {
	r.mu.Lock()
	r.starts[operation] = time.Now()
	delay := r.delays[operation]
	failure := r.failures[operation]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	r.finishes[operation] = time.Now()
	r.mu.Unlock()

	if ctx.Err() != nil {
		return nil, contractx.NewToolError(contractx.ToolErrUnavailable, operation, ctx.Err())
	}
	if failure != nil {
		return nil, failure
	}
	return map[string]any{"operation": operation}, nil
}

func newTestExecutor(inv contractx.ToolInvoker) *Executor {
	return New(inv, Config{RunTimeout: 5 * time.Second}, WithLogger(zerolog.Nop()))
}

func step(op string, group int, required bool) contractx.ExecutionStep {
	return contractx.ExecutionStep{
		Operation: op,
		Args:      map[string]any{"customer_id": "CUST-1"},
		Group:     group,
		Required:  required,
	}
}

func TestExecuteGroupBarrier(t *testing.T) {
	t.Parallel()

	inv := newRecordingInvoker()
	inv.delays["slow_a"] = 60 * time.Millisecond
	inv.delays["slow_b"] = 30 * time.Millisecond

	plan := contractx.ExecutionPlan{
		Intent: contractx.IntentCoverageInquiry,
		Steps: []contractx.ExecutionStep{
			step("slow_a", 0, true),
			step("slow_b", 0, true),
			step("after", 1, false),
		},
	}

	res := newTestExecutor(inv).Execute(context.Background(), plan)
	if len(res.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(res.Outcomes))
	}
	for _, o := range res.Outcomes {
		if !o.OK() {
			t.Fatalf("step %q failed: %v", o.Step.Operation, o.Err)
		}
	}

	afterStart := inv.starts["after"]
	for _, op := range []string{"slow_a", "slow_b"} {
		if afterStart.Before(inv.finishes[op]) {
			t.Fatalf("group 1 started before %q finished", op)
		}
	}
}

func TestExecuteGroupRunsConcurrently(t *testing.T) {
	t.Parallel()

	inv := newRecordingInvoker()
	inv.delays["slow_a"] = 80 * time.Millisecond
	inv.delays["slow_b"] = 80 * time.Millisecond

	plan := contractx.ExecutionPlan{
		Intent: contractx.IntentCoverageInquiry,
		Steps: []contractx.ExecutionStep{
			step("slow_a", 0, true),
			step("slow_b", 0, true),
		},
	}

	start := time.Now()
	newTestExecutor(inv).Execute(context.Background(), plan)
	elapsed := time.Since(start)

	// Serial execution would take at least 160ms.
	if elapsed >= 150*time.Millisecond {
		t.Fatalf("group took %v, steps did not overlap", elapsed)
	}
}

func TestExecuteRequiredFailureDegrades(t *testing.T) {
	t.Parallel()

	inv := newRecordingInvoker()
	inv.failures["get_coverage_limits"] = contractx.NewToolError(
		contractx.ToolErrUnavailable, "get_coverage_limits", errors.New("down"))

	plan := contractx.ExecutionPlan{
		Intent: contractx.IntentCoverageInquiry,
		Steps: []contractx.ExecutionStep{
			step("get_customer_policies", 0, true),
			step("get_coverage_limits", 0, true),
		},
	}

	res := newTestExecutor(inv).Execute(context.Background(), plan)
	if res.Degradation != contractx.DegradationPartial {
		t.Fatalf("degradation = %q, want partial", res.Degradation)
	}
	if !res.Outcomes[0].OK() {
		t.Fatal("healthy step must still succeed")
	}
	if res.Outcomes[1].OK() {
		t.Fatal("failed step must carry its error")
	}
}

func TestExecuteAllRequiredFailedIsTotal(t *testing.T) {
	t.Parallel()

	inv := newRecordingInvoker()
	inv.failures["get_claim_status"] = contractx.NewToolError(
		contractx.ToolErrUnavailable, "get_claim_status", errors.New("down"))

	plan := contractx.ExecutionPlan{
		Intent: contractx.IntentClaimStatus,
		Steps:  []contractx.ExecutionStep{step("get_claim_status", 0, true)},
	}

	res := newTestExecutor(inv).Execute(context.Background(), plan)
	if res.Degradation != contractx.DegradationTotal {
		t.Fatalf("degradation = %q, want total", res.Degradation)
	}
}

func TestExecuteOptionalSuccessKeepsRunPartial(t *testing.T) {
	t.Parallel()

	// Every required step failed, but the optional agent lookup
	// succeeded. Its data still reaches the response, so the run is
	// partial rather than total.
	inv := newRecordingInvoker()
	inv.failures["get_customer_policies"] = contractx.NewToolError(
		contractx.ToolErrUnavailable, "get_customer_policies", errors.New("down"))

	plan := contractx.ExecutionPlan{
		Intent: contractx.IntentPolicyInquiry,
		Steps: []contractx.ExecutionStep{
			step("get_customer_policies", 0, true),
			step("get_agent_contact", 1, false),
		},
	}

	res := newTestExecutor(inv).Execute(context.Background(), plan)
	if res.Degradation != contractx.DegradationPartial {
		t.Fatalf("degradation = %q, want partial", res.Degradation)
	}
	if !res.Outcomes[1].OK() {
		t.Fatal("optional step must still succeed")
	}
}

func TestExecuteOptionalFailureDoesNotDegrade(t *testing.T) {
	t.Parallel()

	inv := newRecordingInvoker()
	inv.failures["get_agent_contact"] = contractx.NewToolError(
		contractx.ToolErrNotFound, "get_agent_contact", errors.New("no agent"))

	plan := contractx.ExecutionPlan{
		Intent: contractx.IntentPolicyInquiry,
		Steps: []contractx.ExecutionStep{
			step("get_customer_policies", 0, true),
			step("get_agent_contact", 1, false),
		},
	}

	res := newTestExecutor(inv).Execute(context.Background(), plan)
	if res.Degradation != contractx.DegradationNone {
		t.Fatalf("degradation = %q, want none", res.Degradation)
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	t.Parallel()

	res := newTestExecutor(newRecordingInvoker()).Execute(context.Background(), contractx.ExecutionPlan{
		Intent:        contractx.IntentPolicyInquiry,
		NeedsIdentity: true,
	})
	if len(res.Outcomes) != 0 {
		t.Fatalf("outcomes = %d, want 0", len(res.Outcomes))
	}
	if res.Degradation != contractx.DegradationNone {
		t.Fatalf("degradation = %q, want none", res.Degradation)
	}
}

func TestExecuteRunTimeoutSurfacesInOutcomes(t *testing.T) {
	t.Parallel()

	inv := newRecordingInvoker()
	inv.delays["get_payment_schedule"] = 200 * time.Millisecond

	ex := New(inv, Config{RunTimeout: 30 * time.Millisecond}, WithLogger(zerolog.Nop()))
	plan := contractx.ExecutionPlan{
		Intent: contractx.IntentPaymentInquiry,
		Steps:  []contractx.ExecutionStep{step("get_payment_schedule", 0, true)},
	}

	res := ex.Execute(context.Background(), plan)
	if res.Outcomes[0].OK() {
		t.Fatal("step must fail when the run budget expires")
	}
	if res.Outcomes[0].Err.Kind != contractx.ToolErrUnavailable {
		t.Fatalf("kind = %q, want unavailable", res.Outcomes[0].Err.Kind)
	}
	if res.Degradation != contractx.DegradationTotal {
		t.Fatalf("degradation = %q, want total", res.Degradation)
	}
}
