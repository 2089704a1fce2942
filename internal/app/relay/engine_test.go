package relay_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	llmadapter "github.com/PabloGalante/threeway-relay/internal/adapters/llm"
	"github.com/PabloGalante/threeway-relay/internal/app/assistant"
	"github.com/PabloGalante/threeway-relay/internal/app/relay"
	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/ledger"
)

// fakeRegistry records every envelope per role; roles marked offline reject
// sends the way a dropped slot would. sendHook, when set before the engine
// runs, observes every send and lets a test pin down an interleaving.
type fakeRegistry struct {
	mu       sync.Mutex
	sent     map[domain.Role][]domain.Envelope
	offline  map[domain.Role]bool
	sendHook func(domain.Role, domain.Envelope)
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		sent:    make(map[domain.Role][]domain.Envelope),
		offline: make(map[domain.Role]bool),
	}
}

func (f *fakeRegistry) Send(role domain.Role, env domain.Envelope) error {
	if f.sendHook != nil {
		f.sendHook(role, env)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline[role] {
		return fmt.Errorf("send to %s: %w", role, domain.ErrNotConnected)
	}
	f.sent[role] = append(f.sent[role], env)
	return nil
}

func (f *fakeRegistry) Broadcast(env domain.Envelope, exclude domain.Role) {
	for _, role := range []domain.Role{domain.RolePhone, domain.RoleCursor} {
		if role != exclude {
			_ = f.Send(role, env)
		}
	}
}

func (f *fakeRegistry) IsConnected(role domain.Role) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.offline[role]
}

func (f *fakeRegistry) sentTo(role domain.Role) []domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Envelope, len(f.sent[role]))
	copy(out, f.sent[role])
	return out
}

// scriptedLLM plays back replies in order and records what it was asked.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	calls   []string
}

func (s *scriptedLLM) GenerateReply(ctx context.Context, userMessage string, convCtx domain.ConversationContext) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, userMessage)
	if len(s.replies) == 0 {
		return "out of script", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptedLLM) call(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

func newTestEngine(t *testing.T, client domain.LLMClient, timeout time.Duration) (*relay.Engine, *fakeRegistry, *ledger.Ledger) {
	t.Helper()

	l := ledger.New()
	gateway := assistant.New(l, 10, 0)
	backends := llmadapter.NewRegistry()

	active := llmadapter.CannedName
	if client != nil {
		backends.Register("scripted", client)
		active = "scripted"
	}

	peers := newFakeRegistry()
	engine := relay.NewEngine(l, peers, gateway, backends, active, relay.Config{
		EscalationTimeout: timeout,
	})
	return engine, peers, l
}

func TestPhoneMessageWithCannedBackend(t *testing.T) {
	engine, peers, l := newTestEngine(t, nil, time.Second)
	ctx := context.Background()

	engine.HandleInbound(ctx, domain.RolePhone, []byte(`{"content":"hello","type":"text"}`))

	toPhone := peers.sentTo(domain.RolePhone)
	if len(toPhone) != 2 {
		t.Fatalf("phone should get processing notice + assistant reply, got %d envelopes", len(toPhone))
	}
	if toPhone[0].Type != domain.EnvelopeSystem {
		t.Fatalf("first phone envelope is %q, want a system processing notice", toPhone[0].Type)
	}
	if toPhone[1].Type != domain.EnvelopeMessage || toPhone[1].Sender != string(domain.RoleAssistant) {
		t.Fatalf("second phone envelope = %+v, want an assistant message", toPhone[1])
	}

	want, _ := llmadapter.NewCanned().GenerateReply(ctx, "hello", domain.ConversationContext{})
	if toPhone[1].Content != want {
		t.Fatalf("assistant content = %q, want the fixed canned string %q", toPhone[1].Content, want)
	}

	toCursor := peers.sentTo(domain.RoleCursor)
	if len(toCursor) != 1 || toCursor[0].Sender != string(domain.RolePhone) || toCursor[0].Content != "hello" {
		t.Fatalf("cursor should get exactly the forwarded phone message, got %+v", toCursor)
	}

	if l.Len() != 2 {
		t.Fatalf("ledger should hold phone + assistant messages, got %d", l.Len())
	}
}

func TestCursorProgrammingMessageRouting(t *testing.T) {
	script := &scriptedLLM{replies: []string{"Check the return value of that function."}}
	engine, peers, l := newTestEngine(t, script, time.Second)

	engine.HandleInbound(context.Background(), domain.RoleCursor, []byte(`{"content":"I have a bug in my function","type":"text"}`))

	toPhone := peers.sentTo(domain.RolePhone)
	if len(toPhone) != 1 || toPhone[0].Sender != string(domain.RoleCursor) {
		t.Fatalf("phone should get the forwarded cursor message, got %+v", toPhone)
	}

	toCursor := peers.sentTo(domain.RoleCursor)
	if len(toCursor) != 1 {
		t.Fatalf("cursor should get exactly the assistant reply, got %d envelopes", len(toCursor))
	}
	if toCursor[0].Sender != string(domain.RoleAssistant) || toCursor[0].Content != "Check the return value of that function." {
		t.Fatalf("assistant reply to cursor = %+v", toCursor[0])
	}

	if script.callCount() != 1 {
		t.Fatalf("backend invoked %d times, want 1", script.callCount())
	}
	if l.Len() != 2 {
		t.Fatalf("ledger should hold cursor + assistant messages, got %d", l.Len())
	}
}

func TestCursorSmallTalkNotRouted(t *testing.T) {
	script := &scriptedLLM{}
	engine, peers, l := newTestEngine(t, script, time.Second)

	engine.HandleInbound(context.Background(), domain.RoleCursor, []byte(`{"content":"nice weather today","type":"text"}`))

	if toPhone := peers.sentTo(domain.RolePhone); len(toPhone) != 1 {
		t.Fatalf("small talk should still be forwarded to phone, got %d envelopes", len(toPhone))
	}
	if toCursor := peers.sentTo(domain.RoleCursor); len(toCursor) != 0 {
		t.Fatalf("small talk must not trigger the assistant, cursor got %+v", toCursor)
	}
	if script.callCount() != 0 {
		t.Fatalf("backend invoked %d times, want 0", script.callCount())
	}
	if l.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1", l.Len())
	}
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	engine, peers, l := newTestEngine(t, nil, time.Second)
	ctx := context.Background()

	engine.HandleInbound(ctx, domain.RolePhone, []byte("not json at all"))
	engine.HandleInbound(ctx, domain.RolePhone, []byte(`{"type":"text"}`)) // no content field

	if l.Len() != 0 {
		t.Fatalf("malformed payloads must not reach the ledger, got %d", l.Len())
	}
	if len(peers.sentTo(domain.RolePhone)) != 0 || len(peers.sentTo(domain.RoleCursor)) != 0 {
		t.Fatal("malformed payloads must not produce sends")
	}

	// the connection stays usable: a following valid frame flows normally
	engine.HandleInbound(ctx, domain.RolePhone, []byte(`{"content":"","type":"text"}`))
	if l.Len() != 2 { // empty content is valid; phone message + assistant reply
		t.Fatalf("empty-but-present content must be accepted, ledger = %d", l.Len())
	}
}

func TestForwardFailureDoesNotStopAssistant(t *testing.T) {
	engine, peers, _ := newTestEngine(t, nil, time.Second)
	peers.mu.Lock()
	peers.offline[domain.RoleCursor] = true
	peers.mu.Unlock()

	engine.HandleInbound(context.Background(), domain.RolePhone, []byte(`{"content":"hello","type":"text"}`))

	toPhone := peers.sentTo(domain.RolePhone)
	if len(toPhone) != 2 {
		t.Fatalf("phone flow must survive a dead cursor slot, got %d envelopes", len(toPhone))
	}
}

func TestSwitchModel(t *testing.T) {
	script := &scriptedLLM{}
	engine, peers, _ := newTestEngine(t, script, time.Second)

	if err := engine.SwitchModel("no-such-model"); !errors.Is(err, relay.ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}

	if err := engine.SwitchModel(llmadapter.CannedName); err != nil {
		t.Fatalf("SwitchModel failed: %v", err)
	}
	if _, active := engine.Models(); active != llmadapter.CannedName {
		t.Fatalf("active model = %q after switch", active)
	}

	// both roles hear about the change
	for _, role := range []domain.Role{domain.RolePhone, domain.RoleCursor} {
		envs := peers.sentTo(role)
		if len(envs) != 1 || envs[0].Type != domain.EnvelopeSystem {
			t.Fatalf("%s should get one system notice, got %+v", role, envs)
		}
	}
}
