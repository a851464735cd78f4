package flowtest

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ResourcePath is a loadable flow document.
type ResourcePath interface {
	// Description names the resource for humans, e.g.
	// "class path resource [simpleFlows/standaloneFlow.xml]".
	Description() string
	Open() (io.ReadCloser, error)
	// URL is the location of URL resources, nil for any other kind.
	URL() *url.URL
	// File is the absolute path of file resources, "" for any other kind.
	File() string
}

// Resource is a flow document together with the flow id derived from its
// location.
type Resource struct {
	ID   string
	Path ResourcePath
}

// FilePath marks a string as a file system path rather than a path below
// the resource root.
type FilePath string

// ResourceMapper turns a resource location into a Resource. A mapper that
// does not handle the location returns nil and no error.
type ResourceMapper interface {
	CreateResource(location any) (*Resource, error)
}

// ResourceMapperFunc adapts a function to a ResourceMapper.
type ResourceMapperFunc func(location any) (*Resource, error)

func (f ResourceMapperFunc) CreateResource(location any) (*Resource, error) { return f(location) }

type urlResource struct {
	u *url.URL
}

func (r urlResource) Description() string { return "URL [" + r.u.String() + "]" }
func (r urlResource) URL() *url.URL       { return r.u }
func (r urlResource) File() string        { return "" }

func (r urlResource) Open() (io.ReadCloser, error) {
	switch r.u.Scheme {
	case "file":
		return os.Open(filepath.FromSlash(r.u.Path))
	case "http", "https":
		resp, err := http.Get(r.u.String())
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: %s", r.u, resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", r.u.Scheme)
	}
}

type fileResource struct {
	path string
}

func (r fileResource) Description() string          { return "file [" + r.path + "]" }
func (r fileResource) URL() *url.URL                { return nil }
func (r fileResource) File() string                 { return r.path }
func (r fileResource) Open() (io.ReadCloser, error) { return os.Open(r.path) }

// classPathResource is a document below the resource root.
type classPathResource struct {
	fsys fs.FS
	path string
}

func (r classPathResource) Description() string { return "class path resource [" + r.path + "]" }
func (r classPathResource) URL() *url.URL       { return nil }
func (r classPathResource) File() string        { return "" }

func (r classPathResource) Open() (io.ReadCloser, error) {
	return r.fsys.Open(r.path)
}

// resourceFactory creates resources and derives their flow ids relative
// to an optional base path.
type resourceFactory struct {
	basePath string
	fsys     fs.FS
}

func (f *resourceFactory) urlResource(u *url.URL) *Resource {
	p := urlResource{u: u}
	return &Resource{ID: f.flowID(u.Path, true), Path: p}
}

func (f *resourceFactory) fileResource(name string) (*Resource, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("resolve file resource %q: %w", name, err)
	}
	p := fileResource{path: abs}
	return &Resource{ID: f.flowID(filepath.ToSlash(abs), true), Path: p}, nil
}

func (f *resourceFactory) classPathResource(name string) *Resource {
	name = strings.TrimPrefix(name, "/")
	p := classPathResource{fsys: f.fsys, path: name}
	return &Resource{ID: f.flowID(name, false), Path: p}
}

// flowID derives the id of the resource at p. Paths of file and URL
// resources are first truncated at the last occurrence of the base path.
func (f *resourceFactory) flowID(p string, truncate bool) string {
	if f.basePath == "" {
		return idFromFileName(p)
	}
	base := strings.TrimPrefix(strings.TrimPrefix(f.basePath, "classpath*:"), "classpath:")
	if truncate {
		if i := strings.LastIndex(p, base); i >= 0 {
			p = p[i:]
		}
	}

	begin := 0
	switch {
	case strings.HasPrefix(p, base):
		begin = len(base)
	case strings.HasPrefix(p, "/"+base):
		begin = len(base) + 1
	}
	if strings.HasPrefix(p[begin:], "/") {
		begin++
	}
	end := strings.LastIndex(p, "/")
	if end < begin {
		return idFromFileName(p)
	}
	return p[begin:end]
}

func idFromFileName(p string) string {
	name := path.Base(p)
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// builtinMappers returns the default chain: URLs, files, paths below the
// resource root and finally anything else by its string form.
func (f *resourceFactory) builtinMappers() []ResourceMapper {
	return []ResourceMapper{
		ResourceMapperFunc(func(location any) (*Resource, error) {
			switch l := location.(type) {
			case *url.URL:
				return f.urlResource(l), nil
			case url.URL:
				return f.urlResource(&l), nil
			}
			return nil, nil
		}),
		ResourceMapperFunc(func(location any) (*Resource, error) {
			switch l := location.(type) {
			case FilePath:
				return f.fileResource(string(l))
			case *os.File:
				return f.fileResource(l.Name())
			}
			return nil, nil
		}),
		ResourceMapperFunc(func(location any) (*Resource, error) {
			if s, ok := location.(string); ok {
				return f.classPathResource(s), nil
			}
			return nil, nil
		}),
		ResourceMapperFunc(func(location any) (*Resource, error) {
			return f.classPathResource(fmt.Sprint(location)), nil
		}),
	}
}
