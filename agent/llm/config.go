package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/harborins/concierge/agent/contract"
	openrouterx "github.com/harborins/concierge/pkg/openrouter"
)

// Role names a model consumer inside the engine.
type Role string

const (
	RoleClassifier Role = "classifier"
	RoleRenderer   Role = "renderer"
)

// Config is the shared model configuration with optional per-role
// overrides. A role without an override uses the default model and
// temperature.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	RendererModel         string  `envconfig:"RENDERER_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"-1"`
	RendererTemperature   float32 `envconfig:"RENDERER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: model api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// ModelFor returns the effective model name for a role.
func (c Config) ModelFor(role Role) string {
	modelName := strings.TrimSpace(c.Model)
	switch role {
	case RoleClassifier:
		if v := strings.TrimSpace(c.ClassifierModel); v != "" {
			modelName = v
		}
	case RoleRenderer:
		if v := strings.TrimSpace(c.RendererModel); v != "" {
			modelName = v
		}
	}
	return modelName
}

// OpenRouterFor projects the shared config onto one role's provider
// configuration.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	temp := c.Temperature
	switch role {
	case RoleClassifier:
		if c.ClassifierTemperature >= 0 {
			temp = c.ClassifierTemperature
		}
	case RoleRenderer:
		if c.RendererTemperature >= 0 {
			temp = c.RendererTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              c.ModelFor(role),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
