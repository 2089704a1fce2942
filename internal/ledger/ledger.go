// Package ledger holds the append-only conversation record shared by both
// role channels, plus the situational context derived from it.
package ledger

import (
	"sync"

	"github.com/PabloGalante/threeway-relay/internal/domain"
)

// Ledger is the single source of truth for conversation history. Appends are
// serialized; readers get consistent snapshots. Messages are never mutated or
// removed, so the ledger only grows for the lifetime of the process.
type Ledger struct {
	mu       sync.RWMutex
	messages []*domain.Message
	context  extractor
}

func New() *Ledger {
	return &Ledger{}
}

// Append records a message and synchronously folds it into the derived
// context. The returned ledger position, assigned here, defines conversation
// order.
func (l *Ledger) Append(msg *domain.Message) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
	l.context.observe(msg)
	return len(l.messages) - 1
}

// RecentTail returns the last n messages in arrival order.
func (l *Ledger) RecentTail(n int) []*domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	msgs := l.messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]*domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// All returns a snapshot of every message in arrival order.
func (l *Ledger) All() []*domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len reports how many messages have been appended.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Context returns a copy of the derived conversation context. The History
// field is left empty; callers pick their own window via RecentTail.
func (l *Ledger) Context() domain.ConversationContext {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.context.snapshot()
}
