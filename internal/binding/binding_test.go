package binding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/flowtest/pkg/api"
)

type address struct {
	Street string `json:"street"`
}

type form struct {
	Amount  int           `json:"amount"`
	Name    string        `json:"name"`
	Entries []string      `json:"entries"`
	Wait    time.Duration `json:"wait"`
	Address address       `json:"address"`
	Upload  api.MultipartFile
}

func TestBindConvertsParameters(t *testing.T) {
	params := api.NewParameterMap()
	params.Put(api.EventIDParameter, "submit")
	params.Put("amount", "12")
	params.Put("Name", "alice")
	params.PutArray("entries", []string{"a", "b"})
	params.Put("wait", "2s")
	params.Put("address.street", "Main")
	file := api.NewMockMultipartFile("upload", "a.txt", "text/plain", []byte("hi"))
	params.PutFile("upload", file)

	f := &form{}
	errs := DefaultBinder.Bind(f, params)
	require.Empty(t, errs)

	assert.Equal(t, 12, f.Amount)
	assert.Equal(t, "alice", f.Name)
	assert.Equal(t, []string{"a", "b"}, f.Entries)
	assert.Equal(t, 2*time.Second, f.Wait)
	assert.Equal(t, "Main", f.Address.Street)
	assert.Same(t, file, f.Upload)
}

func TestBindReportsEachParameter(t *testing.T) {
	params := api.NewParameterMap()
	params.Put("amount", "lots")
	params.Put("name", "bob")
	params.Put("unknown", "x")
	params.Put("address.zip", "123")

	f := &form{Amount: 5}
	errs := DefaultBinder.Bind(f, params)
	require.Len(t, errs, 3)

	assert.Equal(t, "address.zip", errs[0].Field)
	assert.Equal(t, CodePropertyNotFound, errs[0].Code)
	assert.Equal(t, "amount", errs[1].Field)
	assert.Equal(t, CodeTypeMismatch, errs[1].Code)
	assert.Equal(t, "lots", errs[1].Value)
	assert.Equal(t, "unknown", errs[2].Field)
	assert.Equal(t, CodePropertyNotFound, errs[2].Code)

	assert.Equal(t, "bob", f.Name)
	assert.Equal(t, 5, f.Amount)
	assert.Equal(t, "propertyNotFound on unknown", errs[2].Error())
}

func TestBindIntoMap(t *testing.T) {
	params := api.NewParameterMap()
	params.Put("color", "red")

	model := map[string]any{"size": 1}
	assert.Empty(t, DefaultBinder.Bind(&model, params))
	assert.Equal(t, "red", model["color"])
	assert.Equal(t, 1, model["size"])
}

func TestNest(t *testing.T) {
	assert.Equal(t, map[string]any{"a": map[string]any{"b": 1}}, nest("a.b", 1))
	assert.Equal(t, map[string]any{"a": 1}, nest("a", 1))
}
