package classify

import (
	"context"
	"strings"

	contractx "github.com/harborins/concierge/agent/contract"
)

const fallbackConfidence = 0.35

type keywordRule struct {
	intent   contractx.IntentKind
	keywords []string
}

// Rule order is precedence order. Claim and payment cues beat the
// generic policy cue so "claim on my policy" lands on claim_status.
var keywordRules = []keywordRule{
	{contractx.IntentClaimStatus, []string{"claim"}},
	{contractx.IntentPaymentInquiry, []string{"payment", "premium", "bill", "due", "pay "}},
	{contractx.IntentAgentContact, []string{"agent", "contact", "speak to", "talk to", "call me"}},
	{contractx.IntentCoverageInquiry, []string{"coverage", "cover", "deductible", "limit"}},
	{contractx.IntentPolicyInquiry, []string{"policy", "policies", "insured"}},
}

// KeywordClassifier is the deterministic fallback: ordered substring
// rules over the lowercased message. It never fails.
type KeywordClassifier struct{}

var _ contractx.Classifier = KeywordClassifier{}

// Classify matches the first rule whose keyword occurs in the message.
// Messages matching nothing classify as general_inquiry.
func (KeywordClassifier) Classify(_ context.Context, text string) (contractx.Intent, error) {
	lowered := strings.ToLower(text)

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return contractx.Intent{
					Kind:       rule.intent,
					Confidence: fallbackConfidence,
					Source:     contractx.IntentSourceFallback,
					Entities:   map[string]string{},
				}, nil
			}
		}
	}

	return contractx.Intent{
		Kind:       contractx.IntentGeneralInquiry,
		Confidence: fallbackConfidence,
		Source:     contractx.IntentSourceFallback,
		Entities:   map[string]string{},
	}, nil
}
