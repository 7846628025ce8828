package planner

import (
	"reflect"
	"testing"

	contractx "github.com/harborins/concierge/agent/contract"
	"github.com/harborins/concierge/agent/tools"
)

func sessionIdentity(value string) contractx.CustomerIdentity {
	return contractx.CustomerIdentity{Value: value, Source: contractx.IdentityFromSession}
}

func TestPlanPolicyInquiry(t *testing.T) {
	t.Parallel()

	intent := contractx.Intent{
		Kind:     contractx.IntentPolicyInquiry,
		Entities: map[string]string{"policy_type": "auto"},
	}
	plan := New().Plan(intent, sessionIdentity("CUST-001"))

	if plan.NeedsIdentity {
		t.Fatal("plan must not need identity when one is resolved")
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(plan.Steps))
	}

	first := plan.Steps[0]
	if first.Operation != tools.OpGetCustomerPolicies || first.Group != 0 || !first.Required {
		t.Fatalf("step 0 = %+v", first)
	}
	if first.Args["customer_id"] != "CUST-001" || first.Args["policy_type"] != "auto" {
		t.Fatalf("step 0 args = %v", first.Args)
	}

	second := plan.Steps[1]
	if second.Operation != tools.OpGetAgentContact || second.Group != 1 || second.Required {
		t.Fatalf("step 1 = %+v", second)
	}
}

func TestPlanCoverageInquiryRunsBothLookupsConcurrently(t *testing.T) {
	t.Parallel()

	plan := New().Plan(contractx.Intent{Kind: contractx.IntentCoverageInquiry}, sessionIdentity("CUST-9"))

	if len(plan.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(plan.Steps))
	}
	for _, s := range plan.Steps {
		if s.Group != 0 {
			t.Fatalf("step %q group = %d, want 0", s.Operation, s.Group)
		}
		if !s.Required {
			t.Fatalf("step %q must be required", s.Operation)
		}
	}
	if plan.GroupCount() != 1 {
		t.Fatalf("group count = %d, want 1", plan.GroupCount())
	}
}

func TestPlanNeedsIdentity(t *testing.T) {
	t.Parallel()

	none := contractx.CustomerIdentity{Source: contractx.IdentityNone}

	for _, kind := range []contractx.IntentKind{
		contractx.IntentPolicyInquiry,
		contractx.IntentCoverageInquiry,
		contractx.IntentPaymentInquiry,
		contractx.IntentAgentContact,
		contractx.IntentClaimStatus,
	} {
		plan := New().Plan(contractx.Intent{Kind: kind}, none)
		if !plan.NeedsIdentity {
			t.Fatalf("%s: plan must need identity", kind)
		}
		if !plan.Empty() {
			t.Fatalf("%s: identity-blocked plan must be empty, got %d steps", kind, len(plan.Steps))
		}
	}
}

func TestPlanGeneralInquiryNeedsNoIdentity(t *testing.T) {
	t.Parallel()

	intent := contractx.Intent{
		Kind:     contractx.IntentGeneralInquiry,
		Entities: map[string]string{"question": "how do deductibles work?"},
	}
	plan := New().Plan(intent, contractx.CustomerIdentity{Source: contractx.IdentityNone})

	if plan.NeedsIdentity {
		t.Fatal("general inquiry must not need identity")
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(plan.Steps))
	}
	step := plan.Steps[0]
	if step.Operation != tools.OpGeneralInquiry || step.Required {
		t.Fatalf("step = %+v", step)
	}
	if step.Args["question"] != "how do deductibles work?" {
		t.Fatalf("args = %v", step.Args)
	}
}

func TestPlanUnknownIntentDegradesToGeneralInquiry(t *testing.T) {
	t.Parallel()

	plan := New().Plan(contractx.Intent{Kind: "weather_report"}, sessionIdentity("CUST-1"))
	if plan.Intent != contractx.IntentGeneralInquiry {
		t.Fatalf("intent = %q, want general_inquiry", plan.Intent)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Operation != tools.OpGeneralInquiry {
		t.Fatalf("steps = %+v", plan.Steps)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	t.Parallel()

	intent := contractx.Intent{
		Kind:     contractx.IntentClaimStatus,
		Entities: map[string]string{"claim_number": "CLM-77"},
	}
	id := sessionIdentity("CUST-42")

	first := New().Plan(intent, id)
	for i := 0; i < 10; i++ {
		if got := New().Plan(intent, id); !reflect.DeepEqual(got, first) {
			t.Fatalf("plan changed across runs:\nfirst: %+v\ngot:   %+v", first, got)
		}
	}
}

func TestPlanGroupsAreContiguousFromZero(t *testing.T) {
	t.Parallel()

	id := sessionIdentity("CUST-5")
	for _, kind := range contractx.KnownIntents {
		plan := New().Plan(contractx.Intent{Kind: kind}, id)
		seen := map[int]bool{}
		for _, s := range plan.Steps {
			if s.Group < 0 {
				t.Fatalf("%s: negative group %d", kind, s.Group)
			}
			seen[s.Group] = true
		}
		for g := 0; g < plan.GroupCount(); g++ {
			if !seen[g] {
				t.Fatalf("%s: group %d missing, groups must be contiguous", kind, g)
			}
		}
	}
}
