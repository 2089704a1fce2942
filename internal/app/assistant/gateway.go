// Package assistant wraps the external completion call: context assembly,
// fallback text on failure, and escalation-tag parsing. It is the single
// chokepoint where backend unreliability is absorbed, so the relay engine
// never needs failure branches for the network call itself.
package assistant

import (
	"context"
	"strings"

	llmadapter "github.com/PabloGalante/threeway-relay/internal/adapters/llm"
	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/ledger"
	"github.com/PabloGalante/threeway-relay/internal/observability"
)

const (
	apologyText = "Sorry, I'm having trouble reaching my model right now. Please try again in a moment."
	emptyText   = "I couldn't generate a response for that."

	summarizeInstruction = "The development environment answered the sub-task. Summarize its reply for voice relay: one or two short spoken sentences, no code blocks, no markdown. Reply to summarize:\n\n"
)

// Gateway assembles the prompt context for a backend call and turns every
// failure mode into a deterministic user-visible string.
type Gateway struct {
	ledger *ledger.Ledger
	window int
	budget int
}

func New(l *ledger.Ledger, historyWindow, tokenBudget int) *Gateway {
	return &Gateway{
		ledger: l,
		window: historyWindow,
		budget: tokenBudget,
	}
}

// Respond makes a single completion attempt for userMessage. It never
// returns an error: endpoint failures degrade to the apology string and an
// empty completion degrades to a fixed notice. The specific error is logged,
// never shown to a peer.
func (g *Gateway) Respond(ctx context.Context, client domain.LLMClient, userMessage string) string {
	return g.call(ctx, client, userMessage)
}

// Summarize runs the second escalation call: it asks the backend to compress
// the cursor side's reply into something a voice channel can read out.
func (g *Gateway) Summarize(ctx context.Context, client domain.LLMClient, peerReply string) string {
	return g.call(ctx, client, summarizeInstruction+peerReply)
}

func (g *Gateway) call(ctx context.Context, client domain.LLMClient, userMessage string) string {
	convCtx := g.ledger.Context()
	convCtx.History = llmadapter.BudgetedHistory(g.ledger.RecentTail(g.window), g.budget)

	reply, err := client.GenerateReply(ctx, userMessage, convCtx)
	if err != nil {
		observability.ForComponent("gateway").Error("completion failed", "error", err)
		return apologyText
	}
	if strings.TrimSpace(reply) == "" {
		observability.ForComponent("gateway").Warn("completion returned no usable content")
		return emptyText
	}
	return reply
}
