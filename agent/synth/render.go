package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/harborins/concierge/agent/contract"
)

const proseSystemPrompt = `You rewrite an insurance assistant's templated reply into warm,
concise prose. Keep every number, date, identifier and contact detail
exactly as given. Never invent data that is not in the reply or the
facts. Answer with the rewritten reply only.`

// ProseRenderer polishes templated replies with a chat completion.
// It is strictly optional; callers fall back to the templated text on
// any failure.
type ProseRenderer struct {
	client *openaisdk.Client
	model  string
}

var _ contractx.Renderer = (*ProseRenderer)(nil)

// NewProseRenderer wraps an OpenAI-compatible client. Returns nil when
// the client is nil so callers can wire the option unconditionally.
func NewProseRenderer(client *openaisdk.Client, model string) *ProseRenderer {
	if client == nil || strings.TrimSpace(model) == "" {
		return nil
	}
	return &ProseRenderer{client: client, model: strings.TrimSpace(model)}
}

// Render asks the model to restate the templated reply.
func (r *ProseRenderer) Render(
	ctx context.Context,
	intent contractx.IntentKind,
	facts contractx.AggregatedFacts,
	templated string,
) (string, error) {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return "", fmt.Errorf("%w: marshal facts: %v", contractx.ErrValidation, err)
	}

	input := fmt.Sprintf("intent: %s\nfacts: %s\nreply:\n%s", intent, factsJSON, templated)

	resp, err := r.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(r.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(proseSystemPrompt),
			openaisdk.UserMessage(input),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: prose completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: prose completion returned no choices", contractx.ErrModelInvoke)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
