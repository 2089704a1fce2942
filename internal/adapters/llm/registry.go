package llm

import (
	"sync"

	"github.com/PabloGalante/threeway-relay/internal/domain"
)

// Registry holds the completion backends available to the relay, in
// registration order. The canned backend is registered unconditionally so
// there is always something to answer with.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]domain.LLMClient
	order   []string
}

func NewRegistry() *Registry {
	r := &Registry{clients: make(map[string]domain.LLMClient)}
	r.Register(CannedName, NewCanned())
	return r
}

func (r *Registry) Register(name string, client domain.LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[name]; !exists {
		r.order = append(r.order, name)
	}
	r.clients[name] = client
}

func (r *Registry) Get(name string) (domain.LLMClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[name]
	return c, ok
}

// Names lists backends in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
