package relay

import (
	"context"
	"time"

	"github.com/PabloGalante/threeway-relay/internal/domain"
)

const (
	consultingNotice       = "Let me check with the development environment..."
	escalationTimeoutIntro = "The development side didn't reply in time. My best answer for now: "
)

// escalate runs the cross-peer sub-protocol: notify phone, hand the embedded
// sub-task to cursor as a query, and wait for the next cursor message up to
// the configured ceiling. Success yields a voice-relay summary of the reply;
// timeout yields a fixed fallback that carries the original assistant text
// verbatim. Only the phone-handling goroutine blocks here; cursor traffic and
// new connections proceed during the wait.
func (e *Engine) escalate(ctx context.Context, original, task string) string {
	if err := e.peers.Send(domain.RolePhone, domain.SystemEnvelope(consultingNotice)); err != nil {
		e.log.Warn("consulting notice failed", "error", err)
	}

	queryMsg := domain.NewMessage(domain.RoleAssistant, task, domain.KindQuery)
	queryPos := e.ledger.Append(queryMsg)

	// Arm the rendezvous before the query goes out so a fast cursor reply
	// cannot slip between send and wait. The waiter carries the query's
	// ledger position: only cursor messages appended after it may resolve
	// the wait.
	wait := e.armCursorWait(queryPos)

	if err := e.peers.Send(domain.RoleCursor, domain.QueryEnvelope(queryMsg)); err != nil {
		// Cursor may be offline; the wait still runs out its ceiling so the
		// phone side gets a well-formed fallback either way.
		e.log.Warn("escalation query delivery failed", "error", err)
	}

	timer := time.NewTimer(e.cfg.EscalationTimeout)
	defer timer.Stop()

	select {
	case peerReply := <-wait.ch:
		e.log.Info("escalation answered by cursor")
		return e.gateway.Summarize(ctx, e.activeClient(), peerReply)
	case <-timer.C:
		e.disarmCursorWait(wait)
		e.log.Warn("escalation timed out", "ceiling", e.cfg.EscalationTimeout)
		return escalationTimeoutIntro + original
	case <-ctx.Done():
		e.disarmCursorWait(wait)
		return escalationTimeoutIntro + original
	}
}

// cursorWaiter is the single-use rendezvous slot for one escalation. The
// channel is buffered so delivery never blocks the cursor loop; after bounds
// which ledger positions count as a reply.
type cursorWaiter struct {
	ch    chan string
	after int
}

// armCursorWait installs a fresh waiter slot, replacing any stale one.
func (e *Engine) armCursorWait(queryPos int) *cursorWaiter {
	w := &cursorWaiter{ch: make(chan string, 1), after: queryPos}
	e.mu.Lock()
	e.cursorWait = w
	e.mu.Unlock()
	return w
}

func (e *Engine) disarmCursorWait(w *cursorWaiter) {
	e.mu.Lock()
	if e.cursorWait == w {
		e.cursorWait = nil
	}
	e.mu.Unlock()
}

// deliverCursorReply resolves a pending escalation wait, if one is armed and
// the cursor message sits after the query on the ledger. A message that was
// appended before the query stays ordinary traffic and leaves the waiter
// armed for the real answer.
func (e *Engine) deliverCursorReply(content string, pos int) {
	e.mu.Lock()
	w := e.cursorWait
	if w == nil || pos <= w.after {
		e.mu.Unlock()
		return
	}
	e.cursorWait = nil
	e.mu.Unlock()

	w.ch <- content
}
