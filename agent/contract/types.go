package contract

import "time"

// IntentKind enumerates the classified purposes of a customer message.
type IntentKind string

const (
	IntentPolicyInquiry   IntentKind = "policy_inquiry"
	IntentCoverageInquiry IntentKind = "coverage_inquiry"
	IntentPaymentInquiry  IntentKind = "payment_inquiry"
	IntentAgentContact    IntentKind = "agent_contact"
	IntentClaimStatus     IntentKind = "claim_status"
	IntentGeneralInquiry  IntentKind = "general_inquiry"
)

// KnownIntents lists every intent the engine plans for, in stable order.
var KnownIntents = []IntentKind{
	IntentPolicyInquiry,
	IntentCoverageInquiry,
	IntentPaymentInquiry,
	IntentAgentContact,
	IntentClaimStatus,
	IntentGeneralInquiry,
}

// Known reports whether k is one of the planned-for intents.
func (k IntentKind) Known() bool {
	for _, known := range KnownIntents {
		if k == known {
			return true
		}
	}
	return false
}

// IntentSource records which strategy produced the classification.
type IntentSource string

const (
	IntentSourceReasoning IntentSource = "reasoning"
	IntentSourceFallback  IntentSource = "fallback"
)

// Intent is the classified purpose of one customer message. Immutable once
// produced; created per incoming message.
type Intent struct {
	Kind       IntentKind        `json:"kind"`
	Confidence float64           `json:"confidence"`
	Source     IntentSource      `json:"source"`
	Entities   map[string]string `json:"entities,omitempty"`
}

// Entity returns a named entity extracted alongside the intent, or "".
func (i Intent) Entity(name string) string {
	if i.Entities == nil {
		return ""
	}
	return i.Entities[name]
}

// IdentitySource tags where a resolved customer identifier came from.
type IdentitySource string

const (
	IdentityFromSession IdentitySource = "session"
	IdentityFromParsed  IdentitySource = "parsed"
	IdentityNone        IdentitySource = "none"
)

// CustomerIdentity is the single resolved customer identifier for a run.
// A session-provided identifier always wins over a text-parsed one.
type CustomerIdentity struct {
	Value  string         `json:"value,omitempty"`
	Source IdentitySource `json:"source"`
}

// Known returns true when an identifier was resolved from any source.
func (c CustomerIdentity) Known() bool {
	return c.Source != IdentityNone && c.Value != ""
}

// ExecutionStep is one named tool call inside a plan. Steps sharing a
// Group index run concurrently; groups execute in ascending order.
type ExecutionStep struct {
	Operation string         `json:"operation"`
	Args      map[string]any `json:"args,omitempty"`
	Group     int            `json:"group"`
	Required  bool           `json:"required"`
}

// ExecutionPlan is the ordered set of steps answering one intent.
// Group indices are contiguous non-negative integers starting at 0.
// A plan with zero steps is valid.
type ExecutionPlan struct {
	Intent        IntentKind      `json:"intent"`
	Steps         []ExecutionStep `json:"steps,omitempty"`
	NeedsIdentity bool            `json:"needs_identity,omitempty"`
}

// Empty reports whether the plan carries no steps.
func (p ExecutionPlan) Empty() bool {
	return len(p.Steps) == 0
}

// GroupCount returns the number of execution groups (max group index + 1).
func (p ExecutionPlan) GroupCount() int {
	count := 0
	for _, s := range p.Steps {
		if s.Group+1 > count {
			count = s.Group + 1
		}
	}
	return count
}

// StepOutcome is the result of exactly one ExecutionStep: either a
// success payload or a typed tool failure, never both.
type StepOutcome struct {
	Step    ExecutionStep  `json:"step"`
	Payload map[string]any `json:"payload,omitempty"`
	Err     *ToolError     `json:"error,omitempty"`
	Elapsed time.Duration  `json:"elapsed"`
}

// OK reports whether the step produced a success payload.
func (o StepOutcome) OK() bool {
	return o.Err == nil
}

// FactCategory is a normalized bucket of retrieved data, independent of
// which tool produced it.
type FactCategory string

const (
	FactPolicyList      FactCategory = "policy_list"
	FactCoverageLimits  FactCategory = "coverage_limits"
	FactPaymentSchedule FactCategory = "payment_schedule"
	FactAgentContact    FactCategory = "agent_contact"
	FactClaimStatus     FactCategory = "claim_status"
	FactGeneralAnswer   FactCategory = "general_answer"
)

// FactStatus marks how complete a fact is.
type FactStatus string

const (
	FactSuccess FactStatus = "success"
	FactPartial FactStatus = "partial"
	FactMissing FactStatus = "missing"
)

// Fact is one aggregated value with provenance: the operation and group
// of the step that produced it.
type Fact struct {
	Category  FactCategory `json:"category"`
	Value     any          `json:"value"`
	Operation string       `json:"operation"`
	Group     int          `json:"group"`
	Status    FactStatus   `json:"status"`
}

// AggregatedFacts maps fact category to the winning fact for a run.
// Built once per request; read-only input to response synthesis.
type AggregatedFacts map[FactCategory]Fact

// Has reports whether a category was populated.
func (f AggregatedFacts) Has(cat FactCategory) bool {
	_, ok := f[cat]
	return ok
}

// Empty reports whether no fact category was populated at all.
func (f AggregatedFacts) Empty() bool {
	return len(f) == 0
}

// ResponseKind flags how complete the rendered response is.
type ResponseKind string

const (
	ResponseFull           ResponseKind = "full"
	ResponsePartial        ResponseKind = "partial"
	ResponseFallback       ResponseKind = "fallback"
	ResponseIdentityPrompt ResponseKind = "identity_prompt"
)

// RenderedResponse is the terminal artifact of one orchestration run.
type RenderedResponse struct {
	Text   string       `json:"text"`
	Intent IntentKind   `json:"intent"`
	Kind   ResponseKind `json:"kind"`
}

// RunDegradation grades how much required data a run lost.
type RunDegradation string

const (
	DegradationNone    RunDegradation = "none"
	DegradationPartial RunDegradation = "partial"
	DegradationTotal   RunDegradation = "total"
)

// Degraded reports whether any required data was lost.
func (d RunDegradation) Degraded() bool {
	return d == DegradationPartial || d == DegradationTotal
}
