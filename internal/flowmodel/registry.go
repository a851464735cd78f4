package flowmodel

import (
	"fmt"
	"time"

	c "github.com/patrickmn/go-cache"
)

// Registry holds parsed flow documents by id so that child flows can
// resolve their parents.
type Registry struct {
	cache *c.Cache
}

func NewRegistry() *Registry {
	return &Registry{cache: c.New(c.NoExpiration, 10*time.Minute)}
}

// Register stores m under m.ID, replacing an earlier document.
func (r *Registry) Register(m *FlowModel) error {
	if m.ID == "" {
		return fmt.Errorf("flow model without id")
	}
	r.cache.Set(m.ID, m, c.NoExpiration)
	return nil
}

func (r *Registry) Get(id string) (*FlowModel, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*FlowModel), true
}

func (r *Registry) Len() int { return r.cache.ItemCount() }

// Resolve merges every ancestor of m into m, nearest parent first. Parents
// must be registered; cycles are reported as errors.
func (r *Registry) Resolve(m *FlowModel) error {
	return r.resolve(m, map[string]bool{m.ID: true})
}

func (r *Registry) resolve(m *FlowModel, visiting map[string]bool) error {
	for _, id := range m.ParentIDs() {
		if visiting[id] {
			return fmt.Errorf("flow %q: cyclic parent %q", m.ID, id)
		}
		stored, ok := r.Get(id)
		if !ok {
			return fmt.Errorf("flow %q: parent flow %q is not registered", m.ID, id)
		}
		parent := stored.clone()
		visiting[id] = true
		if err := r.resolve(parent, visiting); err != nil {
			return err
		}
		delete(visiting, id)
		m.Merge(parent)
	}
	return nil
}

// clone copies the top-level slices so that merging into the copy leaves
// the registered document untouched.
func (m *FlowModel) clone() *FlowModel {
	cp := *m
	cp.States = append([]StateModel(nil), m.States...)
	cp.Attributes = append([]AttributeModel(nil), m.Attributes...)
	cp.Vars = append([]VarModel(nil), m.Vars...)
	cp.Inputs = append([]MappingModel(nil), m.Inputs...)
	cp.Outputs = append([]MappingModel(nil), m.Outputs...)
	cp.GlobalTransitions = append([]TransitionModel(nil), m.GlobalTransitions...)
	return &cp
}
