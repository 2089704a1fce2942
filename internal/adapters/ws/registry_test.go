package ws_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/PabloGalante/threeway-relay/internal/adapters/ws"
	"github.com/PabloGalante/threeway-relay/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	writes []domain.Envelope
	broken bool
	closed bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errors.New("broken pipe")
	}
	f.writes = append(f.writes, v.(domain.Envelope))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() []domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Envelope, len(f.writes))
	copy(out, f.writes)
	return out
}

func TestAcceptSendsConnectAck(t *testing.T) {
	r := ws.NewRegistry()
	conn := &fakeConn{}

	r.Accept(domain.RolePhone, conn)

	got := conn.received()
	if len(got) != 1 {
		t.Fatalf("expected exactly the connect ack, got %d envelopes", len(got))
	}
	if got[0].Type != domain.EnvelopeSystem {
		t.Fatalf("ack type = %q, want system", got[0].Type)
	}
	if !r.IsConnected(domain.RolePhone) {
		t.Fatal("phone slot should be occupied after Accept")
	}
}

func TestAcceptReplacesSilently(t *testing.T) {
	r := ws.NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	r.Accept(domain.RolePhone, first)
	r.Accept(domain.RolePhone, second)

	if !first.closed {
		t.Fatal("replaced handle should be closed")
	}

	if err := r.Send(domain.RolePhone, domain.SystemEnvelope("ping")); err != nil {
		t.Fatalf("send after replacement failed: %v", err)
	}

	for _, env := range first.received() {
		if env.Content == "ping" {
			t.Fatal("send reached the replaced handle")
		}
	}
	last := second.received()
	if last[len(last)-1].Content != "ping" {
		t.Fatal("send did not reach the new handle")
	}
}

func TestSendToMissingRoleReportsFailure(t *testing.T) {
	r := ws.NewRegistry()

	err := r.Send(domain.RoleCursor, domain.SystemEnvelope("anyone there"))
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestDropIsIdempotentAndSendAfterDropFails(t *testing.T) {
	r := ws.NewRegistry()
	conn := &fakeConn{}
	r.Accept(domain.RoleCursor, conn)

	r.Drop(domain.RoleCursor)
	r.Drop(domain.RoleCursor) // no-op, must not panic

	if r.IsConnected(domain.RoleCursor) {
		t.Fatal("slot still occupied after Drop")
	}
	if err := r.Send(domain.RoleCursor, domain.SystemEnvelope("hello")); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("send after drop: %v", err)
	}
}

func TestWriteFailureImplicitlyDrops(t *testing.T) {
	r := ws.NewRegistry()
	conn := &fakeConn{}
	r.Accept(domain.RolePhone, conn)

	conn.mu.Lock()
	conn.broken = true
	conn.mu.Unlock()

	if err := r.Send(domain.RolePhone, domain.SystemEnvelope("hello")); err == nil {
		t.Fatal("expected the transport failure to surface")
	}
	if r.IsConnected(domain.RolePhone) {
		t.Fatal("failed send must clear the slot")
	}
}

func TestDropConnOnlyEvictsCurrentHandle(t *testing.T) {
	r := ws.NewRegistry()
	old := &fakeConn{}
	replacement := &fakeConn{}

	r.Accept(domain.RolePhone, old)
	r.Accept(domain.RolePhone, replacement)

	// the old read loop exits late; it must not evict the replacement
	r.DropConn(domain.RolePhone, old)
	if !r.IsConnected(domain.RolePhone) {
		t.Fatal("stale DropConn evicted the live handle")
	}

	r.DropConn(domain.RolePhone, replacement)
	if r.IsConnected(domain.RolePhone) {
		t.Fatal("DropConn failed to evict the live handle")
	}
}

func TestBroadcastSkipsExcludedRole(t *testing.T) {
	r := ws.NewRegistry()
	phone := &fakeConn{}
	cursor := &fakeConn{}
	r.Accept(domain.RolePhone, phone)
	r.Accept(domain.RoleCursor, cursor)

	r.Broadcast(domain.SystemEnvelope("announcement"), domain.RolePhone)

	for _, env := range phone.received() {
		if env.Content == "announcement" {
			t.Fatal("excluded role received the broadcast")
		}
	}

	var seen bool
	for _, env := range cursor.received() {
		if env.Content == "announcement" {
			seen = true
		}
	}
	if !seen {
		t.Fatal("cursor missed the broadcast")
	}
}
