package planner

import (
	contractx "github.com/harborins/concierge/agent/contract"
	"github.com/harborins/concierge/agent/tools"
)

// stepTemplate is one row of the static plan table before argument
// binding.
type stepTemplate struct {
	operation string
	group     int
	required  bool
}

// The plan table is fixed per intent. Planning is a pure function of
// intent and identity; the same inputs always yield the same plan.
var planTable = map[contractx.IntentKind][]stepTemplate{
	contractx.IntentPolicyInquiry: {
		{operation: tools.OpGetCustomerPolicies, group: 0, required: true},
		{operation: tools.OpGetAgentContact, group: 1, required: false},
	},
	contractx.IntentCoverageInquiry: {
		{operation: tools.OpGetCustomerPolicies, group: 0, required: true},
		{operation: tools.OpGetCoverageLimits, group: 0, required: true},
	},
	contractx.IntentPaymentInquiry: {
		{operation: tools.OpGetPaymentSchedule, group: 0, required: true},
		{operation: tools.OpGetAgentContact, group: 1, required: false},
	},
	contractx.IntentAgentContact: {
		{operation: tools.OpGetAgentContact, group: 0, required: true},
	},
	contractx.IntentClaimStatus: {
		{operation: tools.OpGetClaimStatus, group: 0, required: true},
	},
	contractx.IntentGeneralInquiry: {
		{operation: tools.OpGeneralInquiry, group: 0, required: false},
	},
}

// Planner turns a classified intent plus resolved identity into an
// execution plan. It holds no state.
type Planner struct{}

func New() Planner {
	return Planner{}
}

// Plan builds the execution plan for one run. Intents that read
// customer data demand a known identity; without one the plan is empty
// and flagged NeedsIdentity. Unrecognized intents degrade to the
// general_inquiry plan.
func (Planner) Plan(intent contractx.Intent, identity contractx.CustomerIdentity) contractx.ExecutionPlan {
	kind := intent.Kind
	templates, ok := planTable[kind]
	if !ok {
		kind = contractx.IntentGeneralInquiry
		templates = planTable[kind]
	}

	if needsIdentity(kind) && !identity.Known() {
		return contractx.ExecutionPlan{
			Intent:        kind,
			NeedsIdentity: true,
		}
	}

	steps := make([]contractx.ExecutionStep, 0, len(templates))
	for _, tpl := range templates {
		steps = append(steps, contractx.ExecutionStep{
			Operation: tpl.operation,
			Args:      bindArgs(tpl.operation, intent, identity),
			Group:     tpl.group,
			Required:  tpl.required,
		})
	}

	return contractx.ExecutionPlan{
		Intent: kind,
		Steps:  steps,
	}
}

func needsIdentity(kind contractx.IntentKind) bool {
	return kind != contractx.IntentGeneralInquiry
}

// bindArgs fills each step's arguments from the resolved identity and
// the entities the classifier extracted.
func bindArgs(operation string, intent contractx.Intent, identity contractx.CustomerIdentity) map[string]any {
	args := map[string]any{}

	switch operation {
	case tools.OpGetCustomerPolicies:
		args["customer_id"] = identity.Value
		if pt := intent.Entity("policy_type"); pt != "" {
			args["policy_type"] = pt
		}
	case tools.OpGetCoverageLimits, tools.OpGetPaymentSchedule, tools.OpGetAgentContact:
		args["customer_id"] = identity.Value
	case tools.OpGetClaimStatus:
		args["customer_id"] = identity.Value
		if cn := intent.Entity("claim_number"); cn != "" {
			args["claim_number"] = cn
		}
	case tools.OpGeneralInquiry:
		args["question"] = intent.Entity("question")
	}

	return args
}
