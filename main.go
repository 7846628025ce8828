package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/harborins/concierge/agent/classify"
	contractx "github.com/harborins/concierge/agent/contract"
	"github.com/harborins/concierge/agent/executor"
	"github.com/harborins/concierge/agent/llm"
	"github.com/harborins/concierge/agent/orchestrator"
	"github.com/harborins/concierge/agent/planner"
	promptx "github.com/harborins/concierge/agent/prompt"
	"github.com/harborins/concierge/agent/session"
	"github.com/harborins/concierge/agent/synth"
	"github.com/harborins/concierge/agent/tools"
	configx "github.com/harborins/concierge/pkg/config"
	_ "github.com/harborins/concierge/pkg/logger/autoload"
	openrouterx "github.com/harborins/concierge/pkg/openrouter"
)

type AppConfig struct {
	ToolGateway string `envconfig:"TOOL_GATEWAY" split_words:"true" default:"http"`
	SessionID   string `envconfig:"SESSION_ID" split_words:"true"`
	CustomerID  string `envconfig:"CUSTOMER_ID" split_words:"true"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("APP")

	gateway := buildGateway(appCfg.ToolGateway)
	invoker := tools.NewInvoker(gateway, *configx.MustNew[tools.InvokerConfig]("INVOKER"))
	exec := executor.New(invoker, *configx.MustNew[executor.Config]("EXECUTOR"))

	classifier, renderer := buildModelLayer(ctx)

	synthOpts := []synth.Option{}
	if renderer != nil {
		synthOpts = append(synthOpts, synth.WithRenderer(renderer))
	}

	orchOpts := []orchestrator.Option{}
	if store := buildSessionStore(); store != nil {
		orchOpts = append(orchOpts, orchestrator.WithSessionStore(store))
	}

	engine, err := orchestrator.New(
		classifier,
		planner.New(),
		exec,
		synth.New(synthOpts...),
		orchOpts...,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	runLoop(ctx, engine, appCfg)
}

func buildGateway(kind string) contractx.ToolGateway {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "postgres":
		gw, err := tools.NewPostgresGateway(*configx.MustNew[tools.PostgresGatewayConfig]("PG"))
		if err != nil {
			log.Fatal().Err(err).Msg("build postgres tool gateway")
		}
		return gw
	default:
		gw, err := tools.NewHTTPGateway(*configx.MustNew[tools.HTTPGatewayConfig]("TOOLS"))
		if err != nil {
			log.Fatal().Err(err).Msg("build http tool gateway")
		}
		return gw
	}
}

// buildModelLayer wires the LLM classifier and the prose renderer.
// Both are optional: without model credentials the engine runs on
// keyword classification and templated responses alone.
func buildModelLayer(ctx context.Context) (contractx.Classifier, contractx.Renderer) {
	llmCfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		log.Warn().Err(err).Msg("model config unavailable, running without LLM")
		return classify.NewService(nil), nil
	}
	if err := llmCfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("model config invalid, running without LLM")
		return classify.NewService(nil), nil
	}

	var primary contractx.Classifier
	classifierCfg := llmCfg.OpenRouterFor(llm.RoleClassifier)
	chatModel, err := classifierCfg.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("classifier model unavailable, using keyword rules")
	} else {
		primary, err = classify.NewLLMClassifier(ctx, chatModel, promptx.LoadPromptSet().Classifier)
		if err != nil {
			log.Warn().Err(err).Msg("classifier graph failed to compile, using keyword rules")
			primary = nil
		}
	}

	renderer := synth.NewProseRenderer(
		openrouterx.NewClient(llmCfg.OpenRouterFor(llm.RoleRenderer)),
		llmCfg.ModelFor(llm.RoleRenderer),
	)

	var r contractx.Renderer
	if renderer != nil {
		r = renderer
	}
	return classify.NewService(primary), r
}

func buildSessionStore() contractx.SessionStore {
	cfg, err := configx.New[session.UpstashRedisConfig]("REDIS")
	if err != nil {
		log.Warn().Err(err).Msg("session store unavailable, sessions disabled")
		return nil
	}
	store, err := session.NewUpstashRedisStore(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("session store rejected config, sessions disabled")
		return nil
	}
	return store
}

func runLoop(ctx context.Context, engine *orchestrator.Orchestrator, cfg *AppConfig) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("concierge ready. Type a message, ctrl-d to quit.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		var (
			res orchestrator.Result
			err error
		)
		if cfg.SessionID != "" {
			res, err = engine.HandleSession(ctx, cfg.SessionID, message)
		} else {
			res, err = engine.Handle(ctx, message, cfg.CustomerID)
		}
		if err != nil {
			log.Error().Err(err).Msg("run failed")
			continue
		}

		fmt.Println(res.Response.Text)
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("read input")
	}
}
