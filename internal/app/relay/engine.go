// Package relay implements the per-role message loop: ledger append,
// best-effort forwarding to the other peer, role-dependent assistant routing,
// and the cross-peer escalation sub-protocol.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	llmadapter "github.com/PabloGalante/threeway-relay/internal/adapters/llm"
	"github.com/PabloGalante/threeway-relay/internal/app/assistant"
	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/ledger"
	"github.com/PabloGalante/threeway-relay/internal/observability"
)

// ErrUnknownModel is returned by SwitchModel for a name nobody registered.
var ErrUnknownModel = errors.New("unknown completion backend")

const processingNotice = "Processing with the assistant..."

// Cursor messages are routed to the assistant only when they look like
// programming talk. Replaceable policy table, matched case-insensitively
// as substrings.
var programmingWords = []string{
	"code", "program", "function", "class", "bug", "error", "debug",
	"python", "javascript", "swift", "java", "c++", "sql", "api",
	"algorithm", "data structure", "framework", "library", "git",
	"deploy", "server", "database", "frontend", "backend", "fullstack",
}

type Config struct {
	EscalationTimeout time.Duration
}

// Engine serializes one logical conversation. Each role connection feeds it
// from its own goroutine; the ledger and the waiter slot are the only shared
// state and both are lock-guarded.
type Engine struct {
	log      *slog.Logger
	ledger   *ledger.Ledger
	peers    domain.Registry
	gateway  *assistant.Gateway
	backends *llmadapter.Registry
	cfg      Config

	mu          sync.Mutex
	activeModel string
	cursorWait  *cursorWaiter // non-nil while a phone turn awaits a cursor reply
}

func NewEngine(
	l *ledger.Ledger,
	peers domain.Registry,
	gateway *assistant.Gateway,
	backends *llmadapter.Registry,
	activeModel string,
	cfg Config,
) *Engine {
	if cfg.EscalationTimeout <= 0 {
		cfg.EscalationTimeout = 30 * time.Second
	}
	if _, ok := backends.Get(activeModel); !ok {
		activeModel = llmadapter.CannedName
	}
	return &Engine{
		log:         observability.ForComponent("relay"),
		ledger:      l,
		peers:       peers,
		gateway:     gateway,
		backends:    backends,
		cfg:         cfg,
		activeModel: activeModel,
	}
}

// inboundPayload is the structured text object clients send on either channel.
type inboundPayload struct {
	Content *string `json:"content"`
	Type    string  `json:"type"`
}

// HandleInbound processes one frame received on a role's channel. A payload
// that does not parse into the envelope shape is dropped; the connection
// stays alive either way.
func (e *Engine) HandleInbound(ctx context.Context, role domain.Role, payload []byte) {
	var in inboundPayload
	if err := json.Unmarshal(payload, &in); err != nil || in.Content == nil {
		e.log.Warn("dropping malformed payload", "role", role, "error", err)
		return
	}

	msg := domain.NewMessage(role, *in.Content, in.Type)
	pos := e.ledger.Append(msg)
	e.log.Info("message received", "role", role, "kind", msg.Kind)

	// Best-effort forward: the sender is not told when the peer is offline.
	if err := e.peers.Send(role.Other(), domain.MessageEnvelope(msg)); err != nil {
		e.log.Warn("forward failed", "to", role.Other(), "error", err)
	}

	switch role {
	case domain.RolePhone:
		e.handlePhoneMessage(ctx, msg)
	case domain.RoleCursor:
		e.handleCursorMessage(ctx, msg, pos)
	}
}

// handlePhoneMessage always consults the assistant, entering the escalation
// sub-protocol when the reply carries a cursor-query span.
func (e *Engine) handlePhoneMessage(ctx context.Context, msg *domain.Message) {
	if err := e.peers.Send(domain.RolePhone, domain.SystemEnvelope(processingNotice)); err != nil {
		e.log.Warn("processing notice failed", "error", err)
	}

	reply := e.gateway.Respond(ctx, e.activeClient(), msg.Content)

	final := reply
	if task, ok := assistant.ParseCursorQuery(reply); ok {
		final = e.escalate(ctx, reply, task)
	}

	finalMsg := domain.NewMessage(domain.RoleAssistant, final, domain.KindText)
	e.ledger.Append(finalMsg)
	if err := e.peers.Send(domain.RolePhone, domain.MessageEnvelope(finalMsg)); err != nil {
		e.log.Warn("assistant reply delivery failed", "to", domain.RolePhone, "error", err)
	}
}

// handleCursorMessage feeds any pending escalation wait first, then consults
// the assistant only for programming talk; the answer goes back to cursor
// alone.
func (e *Engine) handleCursorMessage(ctx context.Context, msg *domain.Message, pos int) {
	e.deliverCursorReply(msg.Content, pos)

	if !isProgrammingTalk(msg.Content) {
		return
	}

	reply := e.gateway.Respond(ctx, e.activeClient(), msg.Content)

	replyMsg := domain.NewMessage(domain.RoleAssistant, reply, domain.KindText)
	e.ledger.Append(replyMsg)
	if err := e.peers.Send(domain.RoleCursor, domain.MessageEnvelope(replyMsg)); err != nil {
		e.log.Warn("assistant reply delivery failed", "to", domain.RoleCursor, "error", err)
	}
}

// Models reports the registered backends and the active one.
func (e *Engine) Models() (names []string, active string) {
	e.mu.Lock()
	active = e.activeModel
	e.mu.Unlock()
	return e.backends.Names(), active
}

// SwitchModel makes name the active backend and tells both roles about it.
func (e *Engine) SwitchModel(name string) error {
	if _, ok := e.backends.Get(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	e.mu.Lock()
	e.activeModel = name
	e.mu.Unlock()

	e.log.Info("completion backend switched", "model", name)
	e.peers.Broadcast(domain.SystemEnvelope(fmt.Sprintf("Assistant model switched to %s", name)), "")
	return nil
}

func (e *Engine) activeClient() domain.LLMClient {
	e.mu.Lock()
	name := e.activeModel
	e.mu.Unlock()

	if client, ok := e.backends.Get(name); ok {
		return client
	}
	client, _ := e.backends.Get(llmadapter.CannedName)
	return client
}

func isProgrammingTalk(content string) bool {
	lower := strings.ToLower(content)
	for _, w := range programmingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
