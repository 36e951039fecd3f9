package remediation

import (
	"sync"

	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
)

type handlerKey struct {
	agent    string
	strategy remediation.Strategy
}

// Registry holds remediation callbacks registered by agents. An agent
// without a registration for a strategy cannot be healed with it.
type Registry struct {
	mu       sync.RWMutex
	handlers map[handlerKey]interfaces.RemediationHandler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[handlerKey]interfaces.RemediationHandler),
	}
}

// Register binds a handler to an (agent, strategy) pair, replacing any
// previous registration
func (r *Registry) Register(agentName string, strategy remediation.Strategy, handler interfaces.RemediationHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handlerKey{agent: agentName, strategy: strategy}] = handler
}

// Lookup returns the handler for an (agent, strategy) pair
func (r *Registry) Lookup(agentName string, strategy remediation.Strategy) (interfaces.RemediationHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[handlerKey{agent: agentName, strategy: strategy}]
	return h, ok
}
