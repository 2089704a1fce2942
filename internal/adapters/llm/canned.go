package llm

import (
	"context"
	"strings"

	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/ledger"
)

// CannedName is the backend that is always registered, credential or not.
const CannedName = "canned"

const (
	cannedQuestion = "Good question. I don't have a live model behind me right now, but I heard you loud and clear. Once an API key is configured I can give you a real answer."
	cannedDebug    = "Sounds like something is misbehaving. I'm running without a live model, so I can't dig into the error myself, but the cursor side of this chat has been looped in."
	cannedGeneric  = "Hello! The relay is working and I can hear you. I'm answering from a canned script because no completion backend is configured."
)

// Canned is the no-credential backend: it keeps the relay fully functional
// (and testable) without any external dependency. Replies are deterministic
// and flavored by what the input looks like.
type Canned struct{}

func NewCanned() *Canned {
	return &Canned{}
}

func (c *Canned) GenerateReply(ctx context.Context, userMessage string, convCtx domain.ConversationContext) (string, error) {
	lower := strings.ToLower(userMessage)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "bug") || strings.Contains(lower, "debug"):
		return cannedDebug, nil
	case ledger.IsQuestion(userMessage):
		return cannedQuestion, nil
	default:
		return cannedGeneric, nil
	}
}
