package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/harborins/concierge/agent/contract"
)

// LLMClassifier maps a raw customer message onto one of the known
// intents using a structured-output model graph.
type LLMClassifier struct {
	runner compose.Runnable[map[string]any, classifyLLMOutput]
}

type classifyLLMOutput struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
}

// NewLLMClassifier compiles the classifier graph against the given model.
func NewLLMClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*LLMClassifier, error) {
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LLMClassifier{runner: runner}, nil
}

// Classify invokes the model and validates its structured output
// against the known intent set.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (contractx.Intent, error) {
	if strings.TrimSpace(text) == "" {
		return contractx.Intent{}, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"message": text,
		"intents": contractx.KnownIntents,
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return contractx.Intent{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.Intent{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	return intentFromLLMOutput(out)
}

func intentFromLLMOutput(out classifyLLMOutput) (contractx.Intent, error) {
	kind := contractx.IntentKind(strings.TrimSpace(strings.ToLower(out.Intent)))
	if !kind.Known() {
		return contractx.Intent{}, fmt.Errorf("%w: unsupported intent %q", contractx.ErrSchemaViolation, out.Intent)
	}

	confidence := out.Confidence
	if confidence < 0 || confidence > 1 {
		return contractx.Intent{}, fmt.Errorf("%w: confidence %v out of range", contractx.ErrSchemaViolation, out.Confidence)
	}

	entities := make(map[string]string, len(out.Entities))
	for k, v := range out.Entities {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		entities[k] = v
	}

	return contractx.Intent{
		Kind:       kind,
		Confidence: confidence,
		Source:     contractx.IntentSourceReasoning,
		Entities:   entities,
	}, nil
}
