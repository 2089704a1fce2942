package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/threeway-relay/internal/adapters/httpapi"
	llmadapter "github.com/PabloGalante/threeway-relay/internal/adapters/llm"
	"github.com/PabloGalante/threeway-relay/internal/adapters/ws"
	"github.com/PabloGalante/threeway-relay/internal/app/assistant"
	"github.com/PabloGalante/threeway-relay/internal/app/relay"
	"github.com/PabloGalante/threeway-relay/internal/config"
	"github.com/PabloGalante/threeway-relay/internal/ledger"
	"github.com/PabloGalante/threeway-relay/internal/observability"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logger := observability.Logger()

	// Completion backends: canned is always there, live ones join when their
	// credentials are configured. A backend that fails to initialize is
	// skipped, not fatal — the relay keeps working on whatever is left.
	backends := llmadapter.NewRegistry()

	if cfg.LLM.Grok.APIKey != "" {
		grok, err := llmadapter.NewGrokClient(cfg.LLM.Grok)
		if err != nil {
			logger.Error("grok backend unavailable", "error", err)
		} else {
			backends.Register(llmadapter.GrokName, grok)
			logger.Info("grok backend registered", "model", cfg.LLM.Grok.Model)
		}
	}

	if cfg.LLM.Gemini.Project != "" {
		gemini, err := llmadapter.NewGeminiClient(ctx, cfg.LLM.Gemini)
		if err != nil {
			logger.Error("gemini backend unavailable", "error", err)
		} else {
			backends.Register(llmadapter.GeminiName, gemini)
			logger.Info("gemini backend registered", "model", cfg.LLM.Gemini.Model)
		}
	}

	active := cfg.LLM.Backend
	if active == "" {
		names := backends.Names()
		active = names[len(names)-1] // last registered live backend, canned otherwise
	}

	convLedger := ledger.New()
	gateway := assistant.New(convLedger, cfg.Relay.HistoryWindow, cfg.Relay.TokenBudget)
	peers := ws.NewRegistry()

	engine := relay.NewEngine(convLedger, peers, gateway, backends, active, relay.Config{
		EscalationTimeout: cfg.Relay.EscalationTimeout,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpapi.RequestLogger(), httpapi.CORS())

	ws.NewHandler(peers, engine).Register(r)
	httpapi.NewHandler(cfg.Server.Name, convLedger, peers, engine).Register(r)

	logger.Info("relay listening",
		"port", cfg.Server.Port,
		"model", active,
		"phone_endpoint", "/ws/phone",
		"cursor_endpoint", "/ws/cursor",
	)

	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
