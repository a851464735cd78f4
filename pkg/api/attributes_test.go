package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeMap_NilSafeReads(t *testing.T) {
	var m AttributeMap

	assert.Nil(t, m.Get("x"))
	assert.False(t, m.Contains("x"))
	assert.Equal(t, "", m.GetString("x"))
	assert.True(t, m.GetBool("x", true))
	assert.Equal(t, 0, m.Size())
	assert.True(t, m.IsEmpty())
	assert.NotNil(t, m.Copy())
	assert.Empty(t, m.Keys())
}

func TestAttributeMap_Conversions(t *testing.T) {
	m := NewAttributeMap(map[string]any{
		"bind":     "false",
		"validate": true,
		"amount":   42,
		"broken":   "maybe",
	})

	assert.False(t, m.GetBool("bind", true))
	assert.True(t, m.GetBool("validate", false))
	assert.True(t, m.GetBool("broken", true), "unconvertible values fall back to the default")
	assert.Equal(t, "42", m.GetString("amount"))

	v, set := m.GetOptionalBool("bind")
	assert.True(t, set)
	assert.False(t, v)

	_, set = m.GetOptionalBool("missing")
	assert.False(t, set)
}

func TestAttributeMap_Mutations(t *testing.T) {
	m := NewAttributeMap(nil)

	assert.Nil(t, m.Put("a", 1))
	assert.Equal(t, 1, m.Put("a", 2))
	m.PutAll(map[string]any{"b": "x", "c": nil})
	assert.True(t, m.Contains("c"))
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())

	assert.Equal(t, "x", m.Remove("b"))
	assert.Equal(t, 2, m.Size())

	union := m.Union(map[string]any{"a": 3, "d": 4})
	assert.Equal(t, 3, union.Get("a"))
	assert.Equal(t, 2, m.Get("a"), "union does not modify the receiver")

	m.Clear()
	assert.True(t, m.IsEmpty())
}

func TestAttributeMap_CopyIsShallow(t *testing.T) {
	src := map[string]any{"list": []string{"a"}}
	m := NewAttributeMap(src)
	src["other"] = true
	require.False(t, m.Contains("other"))

	cp := m.Copy()
	cp.Put("new", 1)
	assert.False(t, m.Contains("new"))
}
