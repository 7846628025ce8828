package tools

import (
	"fmt"
	"strings"

	contractx "github.com/harborins/concierge/agent/contract"
)

// Named operations exposed by the policy-data tool subsystem.
const (
	OpGetCustomerPolicies = "get_customer_policies"
	OpGetCoverageLimits   = "get_coverage_limits"
	OpGetPaymentSchedule  = "get_payment_schedule"
	OpGetAgentContact     = "get_agent_contact"
	OpGetClaimStatus      = "get_claim_status"
	OpGeneralInquiry      = "general_inquiry"
)

// ArgSpec describes one argument of a tool operation.
type ArgSpec struct {
	Name     string
	Desc     string
	Required bool
}

// OperationSpec describes one named operation of the tool subsystem.
type OperationSpec struct {
	Name string
	Desc string
	Args []ArgSpec
}

// Catalog returns the operation specs in stable order.
func Catalog() []OperationSpec {
	return []OperationSpec{
		{
			Name: OpGetCustomerPolicies,
			Desc: "List active policies for a customer.",
			Args: []ArgSpec{
				{Name: "customer_id", Desc: "Customer identifier", Required: true},
				{Name: "policy_type", Desc: "Optional policy-type filter", Required: false},
			},
		},
		{
			Name: OpGetCoverageLimits,
			Desc: "Coverage limits and deductibles across a customer's policies.",
			Args: []ArgSpec{
				{Name: "customer_id", Desc: "Customer identifier", Required: true},
			},
		},
		{
			Name: OpGetPaymentSchedule,
			Desc: "Upcoming premium payments for a customer.",
			Args: []ArgSpec{
				{Name: "customer_id", Desc: "Customer identifier", Required: true},
			},
		},
		{
			Name: OpGetAgentContact,
			Desc: "Contact details of the agent assigned to a customer.",
			Args: []ArgSpec{
				{Name: "customer_id", Desc: "Customer identifier", Required: true},
			},
		},
		{
			Name: OpGetClaimStatus,
			Desc: "Status of a customer's claims, optionally one claim.",
			Args: []ArgSpec{
				{Name: "customer_id", Desc: "Customer identifier", Required: true},
				{Name: "claim_number", Desc: "Optional claim number", Required: false},
			},
		},
		{
			Name: OpGeneralInquiry,
			Desc: "Answer a general question without customer data.",
			Args: []ArgSpec{
				{Name: "question", Desc: "The customer's question", Required: true},
			},
		},
	}
}

func specFor(operation string) (OperationSpec, bool) {
	for _, spec := range Catalog() {
		if spec.Name == operation {
			return spec, true
		}
	}
	return OperationSpec{}, false
}

// ValidateArgs checks an argument map against the catalog. Unknown
// operations and missing required arguments yield classified tool
// errors so the invoker never retries them.
func ValidateArgs(operation string, args map[string]any) error {
	spec, ok := specFor(operation)
	if !ok {
		return contractx.NewToolError(contractx.ToolErrInvalidRequest, operation,
			fmt.Errorf("%w: %s", contractx.ErrUnknownOperation, operation))
	}
	for _, arg := range spec.Args {
		if !arg.Required {
			continue
		}
		raw, ok := args[arg.Name]
		if !ok {
			return contractx.NewToolError(contractx.ToolErrInvalidRequest, operation,
				fmt.Errorf("missing required argument %q", arg.Name))
		}
		if s, isString := raw.(string); isString && strings.TrimSpace(s) == "" {
			return contractx.NewToolError(contractx.ToolErrInvalidRequest, operation,
				fmt.Errorf("argument %q is empty", arg.Name))
		}
	}
	return nil
}
