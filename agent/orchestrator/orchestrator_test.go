package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborins/concierge/agent/classify"
	contractx "github.com/harborins/concierge/agent/contract"
	"github.com/harborins/concierge/agent/executor"
	"github.com/harborins/concierge/agent/planner"
	"github.com/harborins/concierge/agent/synth"
	"github.com/harborins/concierge/agent/tools"
)

// fakeInvoker serves canned payloads per operation and records calls.
type fakeInvoker struct {
	mu       sync.Mutex
	payloads map[string]map[string]any
	failures map[string]*contractx.ToolError
	calls    []string
}

func (f *fakeInvoker) Invoke(_ context.Context, operation string, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, operation)
	f.mu.Unlock()

	if te, ok := f.failures[operation]; ok {
		return nil, te
	}
	if payload, ok := f.payloads[operation]; ok {
		return payload, nil
	}
	return nil, contractx.NewToolError(contractx.ToolErrNotFound, operation, errors.New("no fixture"))
}

func (f *fakeInvoker) called(operation string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range f.calls {
		if op == operation {
			return true
		}
	}
	return false
}

type fakeSessionStore struct {
	records map[string]*contractx.SessionRecord
	err     error
}

func (f *fakeSessionStore) Load(_ context.Context, sessionID string) (*contractx.SessionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}
	return rec, nil
}

func (f *fakeSessionStore) Save(context.Context, *contractx.SessionRecord) error { return nil }
func (f *fakeSessionStore) Delete(context.Context, string) error                 { return nil }

func newEngine(t *testing.T, inv contractx.ToolInvoker, opts ...Option) *Orchestrator {
	t.Helper()

	exec := executor.New(inv, executor.Config{RunTimeout: 5 * time.Second}, executor.WithLogger(zerolog.Nop()))
	opts = append(opts, WithLogger(zerolog.Nop()))
	o, err := New(
		classify.NewService(nil, classify.WithLogger(zerolog.Nop())),
		planner.New(),
		exec,
		synth.New(synth.WithLogger(zerolog.Nop())),
		opts...,
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func healthyFixtures() map[string]map[string]any {
	return map[string]map[string]any{
		tools.OpGetCustomerPolicies: {
			"policies": []any{
				map[string]any{
					"policy_number": "POL-100",
					"policy_type":   "auto",
					"status":        "active",
					"premium":       float64(540),
				},
			},
			"agent": map[string]any{"name": "Dana Reyes", "phone": "555-0100"},
		},
		tools.OpGetCoverageLimits: {
			"coverages": []any{
				map[string]any{
					"policy_number": "POL-100",
					"coverage_type": "collision",
					"limit_amount":  float64(100000),
					"deductible":    float64(500),
				},
			},
		},
		tools.OpGetPaymentSchedule: {
			"payments": []any{
				map[string]any{
					"policy_number": "POL-100",
					"due_date":      "2026-09-01",
					"amount":        float64(540),
					"status":        "scheduled",
				},
			},
		},
		tools.OpGetAgentContact: {
			"agent": map[string]any{"name": "Dana Reyes", "phone": "555-0100", "email": "dana@harborins.example"},
		},
		tools.OpGetClaimStatus: {
			"claims": []any{
				map[string]any{"claim_number": "CLM-77", "status": "in_review", "filed_at": "2026-08-01"},
			},
		},
	}
}

func TestHandleAuthenticatedCoverageInquiry(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{payloads: healthyFixtures()}
	o := newEngine(t, inv)

	res, err := o.Handle(context.Background(), "What does my policy cover?", "CUST-001")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Response.Kind != contractx.ResponseFull {
		t.Fatalf("kind = %q, want full", res.Response.Kind)
	}
	for _, want := range []string{"POL-100", "collision", "$100000.00"} {
		if !strings.Contains(res.Response.Text, want) {
			t.Fatalf("response missing %q:\n%s", want, res.Response.Text)
		}
	}

	if res.Trace.Intent != contractx.IntentCoverageInquiry {
		t.Fatalf("trace intent = %q", res.Trace.Intent)
	}
	if res.Trace.IdentitySource != contractx.IdentityFromSession {
		t.Fatalf("identity source = %q, want session", res.Trace.IdentitySource)
	}
	if len(res.Trace.Steps) != 2 {
		t.Fatalf("trace steps = %d, want 2", len(res.Trace.Steps))
	}
	if res.Trace.RunID == "" {
		t.Fatal("trace must carry a run id")
	}
}

func TestHandleUnauthenticatedAsksForIdentity(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{payloads: healthyFixtures()}
	o := newEngine(t, inv)

	res, err := o.Handle(context.Background(), "What policies do I have?", "")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Response.Kind != contractx.ResponseIdentityPrompt {
		t.Fatalf("kind = %q, want identity_prompt", res.Response.Kind)
	}
	if len(res.Trace.Steps) != 0 {
		t.Fatalf("no tool call may run without identity, got %v", res.Trace.Steps)
	}
	if inv.called(tools.OpGetCustomerPolicies) {
		t.Fatal("tool subsystem must not be reached without identity")
	}
}

func TestHandleParsedIdentityFromMessage(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{payloads: healthyFixtures()}
	o := newEngine(t, inv)

	res, err := o.Handle(context.Background(), "I'm CUST-042, when is my payment due?", "")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Trace.IdentitySource != contractx.IdentityFromParsed {
		t.Fatalf("identity source = %q, want parsed", res.Trace.IdentitySource)
	}
	if res.Response.Kind != contractx.ResponseFull {
		t.Fatalf("kind = %q, want full", res.Response.Kind)
	}
	if !strings.Contains(res.Response.Text, "2026-09-01") {
		t.Fatalf("response missing due date:\n%s", res.Response.Text)
	}
}

func TestHandleDegradedClaimStatusFallsBack(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{
		payloads: healthyFixtures(),
		failures: map[string]*contractx.ToolError{
			tools.OpGetClaimStatus: contractx.NewToolError(
				contractx.ToolErrUnavailable, tools.OpGetClaimStatus, errors.New("subsystem down")),
		},
	}
	o := newEngine(t, inv)

	res, err := o.Handle(context.Background(), "Where is my claim?", "CUST-001")
	if err != nil {
		t.Fatalf("Handle() error = %v, degraded runs must still answer", err)
	}

	if res.Response.Kind != contractx.ResponseFallback {
		t.Fatalf("kind = %q, want fallback", res.Response.Kind)
	}
	if strings.TrimSpace(res.Response.Text) == "" {
		t.Fatal("fallback text must not be empty")
	}
	if res.Trace.Degradation != contractx.DegradationTotal {
		t.Fatalf("degradation = %q, want total", res.Trace.Degradation)
	}
}

func TestHandlePartialDegradation(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{
		payloads: healthyFixtures(),
		failures: map[string]*contractx.ToolError{
			tools.OpGetCoverageLimits: contractx.NewToolError(
				contractx.ToolErrUnavailable, tools.OpGetCoverageLimits, errors.New("down")),
		},
	}
	o := newEngine(t, inv)

	res, err := o.Handle(context.Background(), "What is my coverage?", "CUST-001")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Response.Kind != contractx.ResponsePartial {
		t.Fatalf("kind = %q, want partial", res.Response.Kind)
	}
	if !strings.Contains(res.Response.Text, "POL-100") {
		t.Fatalf("partial response must carry retrieved data:\n%s", res.Response.Text)
	}
	if res.Trace.Degradation != contractx.DegradationPartial {
		t.Fatalf("degradation = %q, want partial", res.Trace.Degradation)
	}
}

func TestHandleRequiredFailureKeepsOptionalData(t *testing.T) {
	t.Parallel()

	// Policy lookup is down but the optional agent lookup still works.
	// The run degrades to partial and the reply carries the agent's
	// details instead of a bare apology.
	inv := &fakeInvoker{
		payloads: healthyFixtures(),
		failures: map[string]*contractx.ToolError{
			tools.OpGetCustomerPolicies: contractx.NewToolError(
				contractx.ToolErrUnavailable, tools.OpGetCustomerPolicies, errors.New("subsystem down")),
		},
	}
	o := newEngine(t, inv)

	res, err := o.Handle(context.Background(), "What policies do I have?", "CUST-001")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Response.Kind != contractx.ResponsePartial {
		t.Fatalf("kind = %q, want partial", res.Response.Kind)
	}
	for _, want := range []string{"Dana Reyes", "555-0100"} {
		if !strings.Contains(res.Response.Text, want) {
			t.Fatalf("response missing %q:\n%s", want, res.Response.Text)
		}
	}
	if !strings.Contains(res.Response.Text, "your policies") {
		t.Fatalf("response must name the missing data:\n%s", res.Response.Text)
	}
	if res.Trace.Degradation != contractx.DegradationPartial {
		t.Fatalf("degradation = %q, want partial", res.Trace.Degradation)
	}
	if !inv.called(tools.OpGetAgentContact) {
		t.Fatal("optional step must still run after the required failure")
	}
}

func TestHandleGeneralInquiryWithoutIdentity(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{
		payloads: map[string]map[string]any{
			tools.OpGeneralInquiry: {"answer": "A deductible is what you pay before coverage kicks in."},
		},
	}
	o := newEngine(t, inv)

	res, err := o.Handle(context.Background(), "hello, how are you today?", "")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Response.Kind != contractx.ResponseFull {
		t.Fatalf("kind = %q, want full", res.Response.Kind)
	}
	if !strings.Contains(res.Response.Text, "deductible") {
		t.Fatalf("response = %q", res.Response.Text)
	}
}

func TestHandleRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	o := newEngine(t, &fakeInvoker{})
	if _, err := o.Handle(context.Background(), "   ", ""); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Handle() error = %v, want validation error", err)
	}
}

func TestHandleSessionResolvesBinding(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{
		records: map[string]*contractx.SessionRecord{
			"sess-9": {SessionID: "sess-9", CustomerID: "CUST-001"},
		},
	}
	inv := &fakeInvoker{payloads: healthyFixtures()}
	o := newEngine(t, inv, WithSessionStore(store))

	res, err := o.HandleSession(context.Background(), "sess-9", "What policies do I have?")
	if err != nil {
		t.Fatalf("HandleSession() error = %v", err)
	}
	if res.Trace.IdentitySource != contractx.IdentityFromSession {
		t.Fatalf("identity source = %q, want session", res.Trace.IdentitySource)
	}
	if res.Response.Kind != contractx.ResponseFull {
		t.Fatalf("kind = %q, want full", res.Response.Kind)
	}
}

func TestHandleSessionLookupFailureDowngrades(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{err: errors.New("redis down")}
	inv := &fakeInvoker{payloads: healthyFixtures()}
	o := newEngine(t, inv, WithSessionStore(store))

	res, err := o.HandleSession(context.Background(), "sess-9", "What policies do I have?")
	if err != nil {
		t.Fatalf("HandleSession() error = %v, lookup failure must not fail the run", err)
	}
	if res.Response.Kind != contractx.ResponseIdentityPrompt {
		t.Fatalf("kind = %q, want identity_prompt", res.Response.Kind)
	}
}
