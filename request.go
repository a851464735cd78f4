package flowtest

import (
	"fmt"
	"mime/multipart"

	"github.com/spf13/cast"

	"github.com/petrijr/flowtest/pkg/api"
)

// encodeParameters turns the values handed to ResumeFlow into request
// parameters: []string values are multi-valued, files are uploads and
// anything else is converted to a string.
func encodeParameters(values map[string]any) *api.ParameterMap {
	params := api.NewParameterMap()
	for name, v := range values {
		switch val := v.(type) {
		case []string:
			params.PutArray(name, val)
		case api.MultipartFile:
			params.PutFile(name, val)
		case *multipart.FileHeader:
			params.PutFile(name, api.FileHeaderFile{Field: name, Header: val})
		default:
			params.Put(name, parameterString(v))
		}
	}
	return params
}

func parameterString(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// newExternalContext creates the context of one simulated request.
func (t *MockFlowTester) newExternalContext() *api.MockExternalContext {
	ext := api.NewMockExternalContext()
	if t.request != nil {
		ext.SetNativeRequest(t.request)
	}
	if t.locale != nil {
		ext.SetLocale(*t.locale)
	}
	return ext
}
