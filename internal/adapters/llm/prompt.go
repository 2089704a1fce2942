package llm

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/ledger"
	"github.com/PabloGalante/threeway-relay/internal/observability"
)

const baseSystemPrompt = `You are the assistant inside a three-way chat that relays messages between a person on their phone and that person's development environment ("cursor").

Your role:
- Answer the phone user directly, conversationally, in a voice-friendly way.
- Keep answers short: they may be read aloud by text-to-speech.
- When a question genuinely needs something only the development environment knows (open files, project state, build output), wrap ONE concrete sub-task in [CURSOR_QUERY]...[/CURSOR_QUERY] and keep the rest of your answer self-contained.
- Never invent project state; ask the cursor side through the query tag instead.`

// RenderSystemContext turns the derived conversation context into the single
// system turn sent to a backend. Keywords are deduped for display only.
func RenderSystemContext(convCtx domain.ConversationContext) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	b.WriteString("\n\nConversation so far:\n")
	b.WriteString("- category: ")
	b.WriteString(string(convCtx.Category))
	if convCtx.LastUserQuestion != "" {
		b.WriteString("\n- last user question: ")
		b.WriteString(convCtx.LastUserQuestion)
	}
	if convCtx.LastPeerReply != "" {
		b.WriteString("\n- last reply from the development side: ")
		b.WriteString(convCtx.LastPeerReply)
	}
	if kw := ledger.DedupKeywords(convCtx.RecentKeywords); len(kw) > 0 {
		b.WriteString("\n- recent topics: ")
		b.WriteString(strings.Join(kw, ", "))
	}
	return b.String()
}

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// tokenCount measures text with the cl100k_base encoding. When the encoding
// cannot be initialized (e.g. no network to fetch the BPE ranks) it degrades
// to a rough bytes/4 estimate rather than failing the call.
func tokenCount(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			observability.ForComponent("llm").Warn("tiktoken unavailable, using byte estimate", "error", err)
			return
		}
		encoder = enc
	})
	if encoder == nil {
		return len(text)/4 + 1
	}
	return len(encoder.Encode(text, nil, nil))
}

// BudgetedHistory trims a history window from the oldest end until it fits
// the token budget. The newest message is always kept.
func BudgetedHistory(history []*domain.Message, budget int) []*domain.Message {
	if budget <= 0 || len(history) == 0 {
		return history
	}

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := tokenCount(string(history[i].Sender) + ": " + history[i].Content)
		if total+cost > budget && start < len(history) {
			break
		}
		total += cost
		start = i
	}
	return history[start:]
}
