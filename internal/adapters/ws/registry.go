// Package ws owns the transport side of the relay: the per-role connection
// slots and the WebSocket endpoints feeding the engine.
package ws

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/observability"
)

// Conn is the slice of a websocket connection the registry needs. Satisfied
// by *websocket.Conn; tests plug in fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Registry holds at most one live connection per role. Accept and Drop are
// atomic with respect to Send: the lock is held across the write, so a send
// racing a drop fails cleanly instead of hitting a stale handle.
type Registry struct {
	log   *slog.Logger
	mu    sync.Mutex
	slots map[domain.Role]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		log:   observability.ForComponent("ws"),
		slots: make(map[domain.Role]Conn),
	}
}

// Accept registers conn as the live connection for role, replacing any prior
// handle, and pushes the role-specific connection acknowledgement. The old
// handle is closed; anything pending on it fails rather than queues.
func (r *Registry) Accept(role domain.Role, conn Conn) {
	r.mu.Lock()
	old := r.slots[role]
	r.slots[role] = conn
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
		r.log.Info("connection replaced", "role", role)
	} else {
		r.log.Info("connection accepted", "role", role)
	}

	ack := domain.SystemEnvelope(fmt.Sprintf("Connected to ThreeWayChat relay (%s channel)", role))
	if err := r.Send(role, ack); err != nil {
		r.log.Warn("connect ack failed", "role", role, "error", err)
	}
}

// Drop clears the slot for role. Dropping an empty slot is a no-op.
func (r *Registry) Drop(role domain.Role) {
	r.mu.Lock()
	conn := r.slots[role]
	delete(r.slots, role)
	r.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		r.log.Info("connection dropped", "role", role)
	}
}

// DropConn clears the slot only when conn is still the live handle. Read
// loops use it on exit so a terminating loop never evicts its replacement.
func (r *Registry) DropConn(role domain.Role, conn Conn) {
	r.mu.Lock()
	current := r.slots[role] == conn
	if current {
		delete(r.slots, role)
	}
	r.mu.Unlock()

	if current {
		_ = conn.Close()
		r.log.Info("connection dropped", "role", role)
	}
}

// Send delivers env to the role's handle. A transport failure is treated as
// an implicit Drop and reported to the caller; callers log and continue.
func (r *Registry) Send(role domain.Role, env domain.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.slots[role]
	if !ok {
		return fmt.Errorf("send to %s: %w", role, domain.ErrNotConnected)
	}
	if err := conn.WriteJSON(env); err != nil {
		delete(r.slots, role)
		_ = conn.Close()
		return fmt.Errorf("send to %s: %w", role, err)
	}
	return nil
}

// Broadcast sends env to every role slot except the excluded one.
func (r *Registry) Broadcast(env domain.Envelope, exclude domain.Role) {
	for _, role := range []domain.Role{domain.RolePhone, domain.RoleCursor} {
		if role == exclude {
			continue
		}
		if err := r.Send(role, env); err != nil {
			r.log.Warn("broadcast send failed", "role", role, "error", err)
		}
	}
}

// IsConnected reports whether the role's slot is occupied.
func (r *Registry) IsConnected(role domain.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[role]
	return ok
}
