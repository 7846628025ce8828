package synth

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/harborins/concierge/agent/contract"
)

// requiredFacts lists the categories a full answer for each intent
// must carry. Anything else a template mentions is decoration.
var requiredFacts = map[contractx.IntentKind][]contractx.FactCategory{
	contractx.IntentPolicyInquiry:   {contractx.FactPolicyList},
	contractx.IntentCoverageInquiry: {contractx.FactPolicyList, contractx.FactCoverageLimits},
	contractx.IntentPaymentInquiry:  {contractx.FactPaymentSchedule},
	contractx.IntentAgentContact:    {contractx.FactAgentContact},
	contractx.IntentClaimStatus:     {contractx.FactClaimStatus},
	contractx.IntentGeneralInquiry:  {contractx.FactGeneralAnswer},
}

var categoryLabels = map[contractx.FactCategory]string{
	contractx.FactPolicyList:      "your policies",
	contractx.FactCoverageLimits:  "your coverage details",
	contractx.FactPaymentSchedule: "your payment schedule",
	contractx.FactAgentContact:    "your agent's contact details",
	contractx.FactClaimStatus:     "your claim status",
	contractx.FactGeneralAnswer:   "an answer to your question",
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithRenderer adds an optional prose pass over the templated text.
// Render failures are swallowed; the templated text stands.
func WithRenderer(r contractx.Renderer) Option {
	return func(s *Synthesizer) {
		s.renderer = r
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// Synthesizer turns aggregated facts into the customer-facing reply.
// It always produces text: missing data degrades the response form,
// never the ability to respond.
type Synthesizer struct {
	templates TemplateSet
	renderer  contractx.Renderer
	logger    zerolog.Logger
}

func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		templates: LoadTemplateSet(),
		logger:    log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Synthesize picks the response form and fills it in. Selection order:
// identity prompt when the plan is identity-blocked, fallback only when
// no fact at all survived, partial when the run is degraded or a
// required fact is missing (whatever was retrieved still renders), full
// otherwise.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	plan contractx.ExecutionPlan,
	facts contractx.AggregatedFacts,
	degradation contractx.RunDegradation,
) contractx.RenderedResponse {
	if plan.NeedsIdentity {
		return contractx.RenderedResponse{
			Text:   s.templates.IdentityPrompt,
			Intent: plan.Intent,
			Kind:   contractx.ResponseIdentityPrompt,
		}
	}

	var missing []contractx.FactCategory
	for _, cat := range requiredFacts[plan.Intent] {
		if !facts.Has(cat) {
			missing = append(missing, cat)
		}
	}

	var resp contractx.RenderedResponse
	switch {
	case facts.Empty():
		resp = contractx.RenderedResponse{
			Text:   s.templates.Fallback,
			Intent: plan.Intent,
			Kind:   contractx.ResponseFallback,
		}
	case len(missing) > 0 || degradation.Degraded():
		resp = contractx.RenderedResponse{
			Text:   s.renderPartial(facts, missing),
			Intent: plan.Intent,
			Kind:   contractx.ResponsePartial,
		}
	default:
		resp = contractx.RenderedResponse{
			Text:   s.renderFull(plan.Intent, facts),
			Intent: plan.Intent,
			Kind:   contractx.ResponseFull,
		}
	}

	if s.renderer != nil && resp.Kind != contractx.ResponseIdentityPrompt {
		polished, err := s.renderer.Render(ctx, resp.Intent, facts, resp.Text)
		if err != nil {
			s.logger.Warn().Err(err).Msg("prose render failed, keeping templated response")
		} else if strings.TrimSpace(polished) != "" {
			resp.Text = strings.TrimSpace(polished)
		}
	}

	return resp
}

func (s *Synthesizer) renderFull(intent contractx.IntentKind, facts contractx.AggregatedFacts) string {
	tpl, ok := s.templates.ByIntent[intent]
	if !ok {
		tpl = s.templates.Fallback
	}
	return substitute(tpl, facts)
}

func (s *Synthesizer) renderPartial(facts contractx.AggregatedFacts, missing []contractx.FactCategory) string {
	var sections []string
	// Stable section order regardless of map iteration.
	for _, cat := range []contractx.FactCategory{
		contractx.FactPolicyList,
		contractx.FactCoverageLimits,
		contractx.FactPaymentSchedule,
		contractx.FactClaimStatus,
		contractx.FactAgentContact,
		contractx.FactGeneralAnswer,
	} {
		fact, ok := facts[cat]
		if !ok {
			continue
		}
		sections = append(sections, formatFact(cat, fact.Value))
	}

	labels := make([]string, 0, len(missing))
	for _, cat := range missing {
		labels = append(labels, categoryLabels[cat])
	}
	missingText := strings.Join(labels, ", ")
	if missingText == "" {
		// Degraded run whose surviving steps still covered every
		// required category. Stay vague rather than name nothing.
		missingText = "some of your records"
	}

	text := s.templates.Partial
	text = strings.ReplaceAll(text, "{{available}}", strings.Join(sections, "\n\n"))
	text = strings.ReplaceAll(text, "{{missing}}", missingText)
	return tidy(text)
}

// substitute replaces every category token with its formatted fact.
// Tokens for absent categories collapse to nothing, so optional
// decoration simply disappears.
func substitute(tpl string, facts contractx.AggregatedFacts) string {
	for cat := range categoryLabels {
		token := "{{" + string(cat) + "}}"
		if !strings.Contains(tpl, token) {
			continue
		}
		replacement := ""
		if fact, ok := facts[cat]; ok {
			replacement = formatFact(cat, fact.Value)
		}
		tpl = strings.ReplaceAll(tpl, token, replacement)
	}
	return tidy(tpl)
}

func tidy(text string) string {
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}
