package synth

import (
	_ "embed"
	"strings"

	contractx "github.com/harborins/concierge/agent/contract"
)

var (
	//go:embed template/policy_inquiry.txt
	policyInquiryRaw string

	//go:embed template/coverage_inquiry.txt
	coverageInquiryRaw string

	//go:embed template/payment_inquiry.txt
	paymentInquiryRaw string

	//go:embed template/agent_contact.txt
	agentContactRaw string

	//go:embed template/claim_status.txt
	claimStatusRaw string

	//go:embed template/general_inquiry.txt
	generalInquiryRaw string

	//go:embed template/identity_prompt.txt
	identityPromptRaw string

	//go:embed template/partial.txt
	partialRaw string

	//go:embed template/fallback.txt
	fallbackRaw string
)

// TemplateSet holds the trimmed response templates. Safe to share; the
// embeds are compile-time constants.
type TemplateSet struct {
	ByIntent       map[contractx.IntentKind]string
	IdentityPrompt string
	Partial        string
	Fallback       string
}

// LoadTemplateSet returns the embedded templates, one per intent plus
// the three terminal forms.
func LoadTemplateSet() TemplateSet {
	return TemplateSet{
		ByIntent: map[contractx.IntentKind]string{
			contractx.IntentPolicyInquiry:   strings.TrimSpace(policyInquiryRaw),
			contractx.IntentCoverageInquiry: strings.TrimSpace(coverageInquiryRaw),
			contractx.IntentPaymentInquiry:  strings.TrimSpace(paymentInquiryRaw),
			contractx.IntentAgentContact:    strings.TrimSpace(agentContactRaw),
			contractx.IntentClaimStatus:     strings.TrimSpace(claimStatusRaw),
			contractx.IntentGeneralInquiry:  strings.TrimSpace(generalInquiryRaw),
		},
		IdentityPrompt: strings.TrimSpace(identityPromptRaw),
		Partial:        strings.TrimSpace(partialRaw),
		Fallback:       strings.TrimSpace(fallbackRaw),
	}
}
