package tools

import (
	"context"

	"github.com/fyrsmithlabs/agentd/internal/action"
)

// Handler executes one capability against the workspace and returns a
// human-readable detail string.
type Handler func(ctx context.Context, req action.Request, ws WorkspaceProvider) (string, error)

// Registry is the static mapping from capability to handler.
type Registry struct {
	handlers map[action.Capability]Handler
}

// NewRegistry builds the capability table. Every enumerated capability
// has exactly one handler; parse-time validation guarantees no other
// name reaches the executor.
func NewRegistry() *Registry {
	return &Registry{
		handlers: map[action.Capability]Handler{
			action.CapCreateFile:     createFile,
			action.CapEditFile:       editFile,
			action.CapRunCommand:     runCommand,
			action.CapCreateProject:  createProject,
			action.CapAnalyzeContent: analyzeContent,
		},
	}
}

// Lookup returns the handler for a capability.
func (r *Registry) Lookup(c action.Capability) (Handler, bool) {
	h, ok := r.handlers[c]
	return h, ok
}

// Has reports whether a capability is registered.
func (r *Registry) Has(c action.Capability) bool {
	_, ok := r.handlers[c]
	return ok
}

// Names returns the registered capability names in a stable order.
func (r *Registry) Names() []action.Capability {
	var names []action.Capability
	for _, c := range action.Capabilities() {
		if r.Has(c) {
			names = append(names, c)
		}
	}
	return names
}
