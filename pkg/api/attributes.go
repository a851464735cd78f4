package api

import (
	"maps"
	"sort"

	"github.com/spf13/cast"
)

// AttributeMap is a named bag of attributes. Scopes, flow input and flow
// output are all AttributeMaps.
//
// Read accessors are nil-safe; writes require a non-nil map, see
// NewAttributeMap.
type AttributeMap map[string]any

// NewAttributeMap returns an empty map, optionally seeded with a copy of src.
func NewAttributeMap(src map[string]any) AttributeMap {
	m := make(AttributeMap, len(src))
	for k, v := range src {
		m[k] = v
	}
	return m
}

// Get returns the attribute stored under key, or nil.
func (m AttributeMap) Get(key string) any {
	return m[key]
}

// Lookup returns the attribute stored under key and whether it was present.
func (m AttributeMap) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Contains reports whether key is present, even with a nil value.
func (m AttributeMap) Contains(key string) bool {
	_, ok := m[key]
	return ok
}

// GetString returns the attribute converted to a string, or "" when absent.
func (m AttributeMap) GetString(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// GetBool converts the attribute to a bool. def is returned when the
// attribute is missing or cannot be converted.
func (m AttributeMap) GetBool(key string, def bool) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// GetOptionalBool is like GetBool but reports whether a value was set.
func (m AttributeMap) GetOptionalBool(key string) (value bool, set bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Put stores value under key and returns the previous value.
func (m AttributeMap) Put(key string, value any) any {
	prev := m[key]
	m[key] = value
	return prev
}

// PutAll copies every attribute of src into m.
func (m AttributeMap) PutAll(src map[string]any) {
	for k, v := range src {
		m[k] = v
	}
}

// Remove deletes key and returns the removed value.
func (m AttributeMap) Remove(key string) any {
	prev := m[key]
	delete(m, key)
	return prev
}

// Clear removes all attributes.
func (m AttributeMap) Clear() {
	clear(m)
}

// Size returns the number of attributes.
func (m AttributeMap) Size() int {
	return len(m)
}

// IsEmpty reports whether there are no attributes.
func (m AttributeMap) IsEmpty() bool {
	return len(m) == 0
}

// Copy returns a shallow copy. A nil map copies to an empty map.
func (m AttributeMap) Copy() AttributeMap {
	if m == nil {
		return AttributeMap{}
	}
	return maps.Clone(m)
}

// Union returns a new map holding the attributes of m overlaid with other.
func (m AttributeMap) Union(other map[string]any) AttributeMap {
	out := m.Copy()
	out.PutAll(other)
	return out
}

// Keys returns the attribute names in sorted order.
func (m AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsMap exposes the attributes as a plain map sharing the same storage.
func (m AttributeMap) AsMap() map[string]any {
	return m
}
