package aggregate

import (
	"sort"

	contractx "github.com/harborins/concierge/agent/contract"
	"github.com/harborins/concierge/agent/tools"
)

// projection maps one payload key of an operation onto a fact category.
type projection struct {
	key      string
	category contractx.FactCategory
}

// Each operation projects one or more payload keys into normalized
// fact categories. The policies payload doubles as an agent-contact
// source when the subsystem includes the assigned agent.
var projections = map[string][]projection{
	tools.OpGetCustomerPolicies: {
		{key: "policies", category: contractx.FactPolicyList},
		{key: "agent", category: contractx.FactAgentContact},
	},
	tools.OpGetCoverageLimits: {
		{key: "coverages", category: contractx.FactCoverageLimits},
	},
	tools.OpGetPaymentSchedule: {
		{key: "payments", category: contractx.FactPaymentSchedule},
	},
	tools.OpGetAgentContact: {
		{key: "agent", category: contractx.FactAgentContact},
	},
	tools.OpGetClaimStatus: {
		{key: "claims", category: contractx.FactClaimStatus},
	},
	tools.OpGeneralInquiry: {
		{key: "answer", category: contractx.FactGeneralAnswer},
	},
}

// Build folds step outcomes into the per-category fact map. Failed
// steps contribute nothing. When two steps populate the same category
// the later one wins, ordered by group then by plan position.
func Build(outcomes []contractx.StepOutcome) contractx.AggregatedFacts {
	order := make([]int, len(outcomes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return outcomes[order[a]].Step.Group < outcomes[order[b]].Step.Group
	})

	facts := contractx.AggregatedFacts{}
	for _, idx := range order {
		outcome := outcomes[idx]
		if !outcome.OK() || outcome.Payload == nil {
			continue
		}
		for _, proj := range projections[outcome.Step.Operation] {
			value, ok := outcome.Payload[proj.key]
			if !ok || value == nil {
				continue
			}
			facts[proj.category] = contractx.Fact{
				Category:  proj.category,
				Value:     value,
				Operation: outcome.Step.Operation,
				Group:     outcome.Step.Group,
				Status:    contractx.FactSuccess,
			}
		}
	}
	return facts
}
