package flowtest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, p ResourcePath) string {
	t.Helper()
	rc, err := p.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestResource_StringLocationIsResolvedBelowResourceRoot(t *testing.T) {
	r, err := NewResourceConfiguration("simpleFlows/standaloneFlow.xml").Resource()
	require.NoError(t, err)

	assert.Equal(t, "standaloneFlow", r.ID)
	assert.Equal(t, "class path resource [simpleFlows/standaloneFlow.xml]", r.Path.Description())
	assert.Nil(t, r.Path.URL())
	assert.Empty(t, r.Path.File())
	assert.Contains(t, readAll(t, r.Path), `<view-state id="start">`)
}

func TestResource_LeadingSlashIsStripped(t *testing.T) {
	r, err := NewResourceConfiguration("/simpleFlows/standaloneFlow.xml").Resource()
	require.NoError(t, err)

	assert.Equal(t, "standaloneFlow", r.ID)
	assert.Equal(t, "class path resource [simpleFlows/standaloneFlow.xml]", r.Path.Description())
}

func TestResource_FilePath(t *testing.T) {
	abs, err := filepath.Abs("testdata/simpleFlows/standaloneFlow.xml")
	require.NoError(t, err)

	r, err := NewResourceConfiguration(FilePath("testdata/simpleFlows/standaloneFlow.xml")).Resource()
	require.NoError(t, err)

	assert.Equal(t, "standaloneFlow", r.ID)
	assert.Equal(t, abs, r.Path.File())
	assert.Equal(t, "file ["+abs+"]", r.Path.Description())
	assert.Contains(t, readAll(t, r.Path), `<end-state id="bye"/>`)
}

func TestResource_OSFile(t *testing.T) {
	f, err := os.Open("testdata/simpleFlows/flowWithInput.xml")
	require.NoError(t, err)
	defer f.Close()

	r, err := NewResourceConfiguration(f).Resource()
	require.NoError(t, err)

	assert.Equal(t, "flowWithInput", r.ID)
	assert.True(t, filepath.IsAbs(r.Path.File()))
}

func TestResource_URLWithBasePathUsesDirectoryBelowBasePath(t *testing.T) {
	u, err := url.Parse("file:///home/dev/project/src/test/resources/simpleFlows/standaloneFlow.xml")
	require.NoError(t, err)

	r, err := NewResourceConfiguration(u).WithBasePath("src/test/").Resource()
	require.NoError(t, err)

	assert.Equal(t, "resources/simpleFlows", r.ID)
	assert.Equal(t, "URL [file:///home/dev/project/src/test/resources/simpleFlows/standaloneFlow.xml]", r.Path.Description())
	assert.Equal(t, u, r.Path.URL())
}

func TestResource_URLValue(t *testing.T) {
	u, err := url.Parse("file:///flows/standaloneFlow.xml")
	require.NoError(t, err)

	r, err := NewResourceConfiguration(*u).Resource()
	require.NoError(t, err)
	assert.Equal(t, "standaloneFlow", r.ID)
}

func TestResource_HTTPURLIsFetched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/flows/remote.xml" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `<flow><end-state id="done"/></flow>`)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL + "/flows/remote.xml")
	require.NoError(t, err)
	r, err := NewResourceConfiguration(u).Resource()
	require.NoError(t, err)

	assert.Equal(t, "remote", r.ID)
	assert.Equal(t, `<flow><end-state id="done"/></flow>`, readAll(t, r.Path))

	missing, err := url.Parse(srv.URL + "/flows/missing.xml")
	require.NoError(t, err)
	r, err = NewResourceConfiguration(missing).Resource()
	require.NoError(t, err)
	_, err = r.Path.Open()
	assert.ErrorContains(t, err, "404")
}

func TestResource_BasePathWithClassPathResource(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		location string
		want     string
	}{
		{"directory below base path", "flows", "flows/orders/create.xml", "orders"},
		{"nested directory", "flows", "flows/orders/create/flow.xml", "orders/create"},
		{"file directly in base path", "simpleFlows", "simpleFlows/standaloneFlow.xml", "standaloneFlow"},
		{"classpath prefix", "classpath:flows", "flows/orders/create.xml", "orders"},
		{"base path not matching", "other", "flows/orders/create.xml", "flows/orders"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResourceConfiguration(tt.location).WithBasePath(tt.basePath).Resource()
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ID)
		})
	}
}

func TestResource_UnknownLocationIsConvertedToString(t *testing.T) {
	r, err := NewResourceConfiguration([]string{"content, more content"}).Resource()
	require.NoError(t, err)

	assert.Equal(t, "[content, more content]", r.ID)
	assert.Equal(t, "class path resource [[content, more content]]", r.Path.Description())
}

func TestResource_IsCached(t *testing.T) {
	conf := NewResourceConfiguration("simpleFlows/standaloneFlow.xml")
	first, err := conf.Resource()
	require.NoError(t, err)
	second, err := conf.Resource()
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestResource_BasePathIsReadOnce(t *testing.T) {
	conf := NewResourceConfiguration("flows/orders/create.xml")
	_, err := conf.CreateResource("flows/other/x.xml")
	require.NoError(t, err)

	conf.WithBasePath("flows")
	r, err := conf.Resource()
	require.NoError(t, err)
	assert.Equal(t, "create", r.ID)
}

func TestResource_RegisteredMapperComesFirst(t *testing.T) {
	fsys := fstest.MapFS{"numbered/7.xml": {Data: []byte(`<flow/>`)}}
	conf := NewResourceConfiguration(7).
		WithResourceFS(fsys).
		RegisterMapper(ResourceMapperFunc(func(location any) (*Resource, error) {
			n, ok := location.(int)
			if !ok {
				return nil, nil
			}
			return &Resource{
				ID:   fmt.Sprintf("flow-%d", n),
				Path: classPathResource{fsys: fsys, path: fmt.Sprintf("numbered/%d.xml", n)},
			}, nil
		}))

	r, err := conf.Resource()
	require.NoError(t, err)
	assert.Equal(t, "flow-7", r.ID)
	assert.Equal(t, `<flow/>`, readAll(t, r.Path))

	other, err := conf.CreateResource("simpleFlows/x.xml")
	require.NoError(t, err)
	assert.Equal(t, "x", other.ID)
}

func TestResource_ResourceFS(t *testing.T) {
	fsys := fstest.MapFS{"a/b.xml": {Data: []byte(`<flow id="x"/>`)}}
	r, err := NewResourceConfiguration("a/b.xml").WithResourceFS(fsys).Resource()
	require.NoError(t, err)
	assert.Equal(t, `<flow id="x"/>`, readAll(t, r.Path))

	missing, err := NewResourceConfiguration("a/c.xml").WithResourceFS(fsys).Resource()
	require.NoError(t, err)
	_, err = missing.Path.Open()
	assert.Error(t, err)
}
