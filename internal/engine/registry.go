package engine

import (
	"fmt"
	"sort"
	"sync"
)

// FlowDefinitionHolder lazily provides a flow definition. Holders let stub
// and real sub-flows be registered before they are built.
type FlowDefinitionHolder interface {
	FlowDefinitionID() string
	FlowDefinition() (*Flow, error)
}

// StaticHolder holds an already assembled flow.
type StaticHolder struct {
	Flow *Flow
}

func (h StaticHolder) FlowDefinitionID() string       { return h.Flow.ID() }
func (h StaticHolder) FlowDefinition() (*Flow, error) { return h.Flow, nil }

// FlowRegistry maps flow ids to holders. Lookups that miss fall through to
// the parent registry, if any.
type FlowRegistry struct {
	mu     sync.RWMutex
	byID   map[string]FlowDefinitionHolder
	parent *FlowRegistry
}

func NewFlowRegistry(parent *FlowRegistry) *FlowRegistry {
	return &FlowRegistry{
		byID:   make(map[string]FlowDefinitionHolder),
		parent: parent,
	}
}

// Register adds or replaces the holder for its flow id.
func (r *FlowRegistry) Register(h FlowDefinitionHolder) error {
	id := h.FlowDefinitionID()
	if id == "" {
		return fmt.Errorf("flow definition holder without id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = h
	return nil
}

// RegisterFlow registers an assembled flow.
func (r *FlowRegistry) RegisterFlow(f *Flow) error {
	return r.Register(StaticHolder{Flow: f})
}

func (r *FlowRegistry) Contains(id string) bool {
	r.mu.RLock()
	_, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return true
	}
	return r.parent != nil && r.parent.Contains(id)
}

// FlowDefinition resolves id to a flow, building it through its holder.
func (r *FlowRegistry) FlowDefinition(id string) (*Flow, error) {
	r.mu.RLock()
	h, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		if r.parent != nil {
			return r.parent.FlowDefinition(id)
		}
		return nil, &NoSuchFlowDefinitionError{FlowID: id}
	}
	return h.FlowDefinition()
}

// IDs returns the ids registered directly with r, sorted.
func (r *FlowRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
