package flowmodel

// Merge folds parent into m. m keeps its own declarations; the parent
// contributes what m does not declare. States of m come first, followed by
// the parent states m does not override.
func (m *FlowModel) Merge(parent *FlowModel) {
	if m.StartState == "" {
		m.StartState = parent.StartState
	}

	for _, s := range parent.States {
		if m.State(s.ID) == nil {
			m.States = append(m.States, s)
		}
	}

	m.Attributes = mergeByKey(m.Attributes, parent.Attributes, func(a AttributeModel) string { return a.Name })
	m.Vars = mergeByKey(m.Vars, parent.Vars, func(v VarModel) string { return v.Name })
	m.Inputs = mergeByKey(m.Inputs, parent.Inputs, func(i MappingModel) string { return i.Name })
	m.Outputs = mergeByKey(m.Outputs, parent.Outputs, func(o MappingModel) string { return o.Name })
	m.GlobalTransitions = mergeByKey(m.GlobalTransitions, parent.GlobalTransitions, func(t TransitionModel) string { return t.On })

	if m.OnStart == nil {
		m.OnStart = parent.OnStart
	}
	if m.OnEnd == nil {
		m.OnEnd = parent.OnEnd
	}
}

func mergeByKey[T any](own, inherited []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(own))
	for _, o := range own {
		seen[key(o)] = struct{}{}
	}
	out := own
	for _, i := range inherited {
		if _, ok := seen[key(i)]; !ok {
			out = append(out, i)
		}
	}
	return out
}
