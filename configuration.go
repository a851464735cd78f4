package flowtest

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/petrijr/flowtest/internal/flowmodel"
)

// DefaultResourceRoot is the directory string locations are resolved
// against unless WithResourceFS says otherwise.
const DefaultResourceRoot = "testdata"

// ResourceConfiguration is the externalized configuration of one flow
// document. The location may be a *url.URL, a FilePath or *os.File, a
// string naming a document below the resource root, or any other value,
// which is converted to a string.
//
// The resource is resolved lazily, once. WithBasePath and WithResourceFS
// only take effect when called before the first resolution.
type ResourceConfiguration struct {
	location any

	basePath string
	fsys     fs.FS
	mappers  []ResourceMapper

	factory  *resourceFactory
	resource *Resource
	err      error
}

// NewResourceConfiguration creates a configuration for location.
func NewResourceConfiguration(location any) *ResourceConfiguration {
	return &ResourceConfiguration{location: location}
}

// WithBasePath makes flow ids relative to basePath. It has no effect once
// a resource has been resolved.
func (c *ResourceConfiguration) WithBasePath(basePath string) *ResourceConfiguration {
	c.basePath = basePath
	return c
}

// WithResourceFS sets the file system string locations are resolved
// against. It has no effect once a resource has been resolved.
func (c *ResourceConfiguration) WithResourceFS(fsys fs.FS) *ResourceConfiguration {
	c.fsys = fsys
	return c
}

// RegisterMapper adds a mapper that is consulted before the built-in
// ones, in registration order.
func (c *ResourceConfiguration) RegisterMapper(m ResourceMapper) *ResourceConfiguration {
	c.mappers = append(c.mappers, m)
	return c
}

// Location returns the location the configuration was created with.
func (c *ResourceConfiguration) Location() any { return c.location }

func (c *ResourceConfiguration) resourceFactory() *resourceFactory {
	if c.factory == nil {
		fsys := c.fsys
		if fsys == nil {
			fsys = os.DirFS(DefaultResourceRoot)
		}
		c.factory = &resourceFactory{basePath: c.basePath, fsys: fsys}
	}
	return c.factory
}

// Resource resolves the configured location. The result, or the error, is
// cached.
func (c *ResourceConfiguration) Resource() (*Resource, error) {
	if c.resource == nil && c.err == nil {
		c.resource, c.err = c.CreateResource(c.location)
	}
	return c.resource, c.err
}

// CreateResource maps location with the first mapper that handles it.
func (c *ResourceConfiguration) CreateResource(location any) (*Resource, error) {
	f := c.resourceFactory()
	for _, m := range append(append([]ResourceMapper(nil), c.mappers...), f.builtinMappers()...) {
		r, err := m.CreateResource(location)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no resource mapper handles %T", location)
}

// DocumentConfiguration configures a flow document together with the
// documents of its parent flows.
type DocumentConfiguration struct {
	*ResourceConfiguration

	format    flowmodel.Format
	parents   []any
	resources []*Resource
}

// XMLConfiguration is the configuration of an XML flow document.
type XMLConfiguration = DocumentConfiguration

// NewXMLConfiguration configures an XML document at location.
func NewXMLConfiguration(location any) *DocumentConfiguration {
	return &DocumentConfiguration{ResourceConfiguration: NewResourceConfiguration(location), format: flowmodel.FormatXML}
}

// NewYAMLConfiguration configures a YAML document at location.
func NewYAMLConfiguration(location any) *DocumentConfiguration {
	return &DocumentConfiguration{ResourceConfiguration: NewResourceConfiguration(location), format: flowmodel.FormatYAML}
}

// NewDocumentConfiguration derives the document format from the extension
// of location: .yaml and .yml are YAML, anything else is XML.
func NewDocumentConfiguration(location any) *DocumentConfiguration {
	c := NewXMLConfiguration(location)
	c.format = formatOf(location)
	return c
}

func formatOf(location any) flowmodel.Format {
	switch l := location.(type) {
	case FilePath:
		return flowmodel.FormatFor(string(l))
	case string:
		return flowmodel.FormatFor(l)
	case *os.File:
		return flowmodel.FormatFor(l.Name())
	case interface{ String() string }:
		return flowmodel.FormatFor(l.String())
	default:
		return flowmodel.FormatXML
	}
}

// Format is the syntax of the main document and its parents.
func (c *DocumentConfiguration) Format() flowmodel.Format { return c.format }

// WithBasePath is ResourceConfiguration.WithBasePath returning c.
func (c *DocumentConfiguration) WithBasePath(basePath string) *DocumentConfiguration {
	c.ResourceConfiguration.WithBasePath(basePath)
	return c
}

// WithResourceFS is ResourceConfiguration.WithResourceFS returning c.
func (c *DocumentConfiguration) WithResourceFS(fsys fs.FS) *DocumentConfiguration {
	c.ResourceConfiguration.WithResourceFS(fsys)
	return c
}

// RegisterMapper is ResourceConfiguration.RegisterMapper returning c.
func (c *DocumentConfiguration) RegisterMapper(m ResourceMapper) *DocumentConfiguration {
	c.ResourceConfiguration.RegisterMapper(m)
	return c
}

// AddParentFlow adds the document of a parent flow. Parent locations are
// resolved like the main location.
func (c *DocumentConfiguration) AddParentFlow(location any) *DocumentConfiguration {
	c.parents = append(c.parents, location)
	c.resources = nil
	return c
}

// FlowResources resolves the parent documents, in the order they were
// added. The returned slice is a copy.
func (c *DocumentConfiguration) FlowResources() ([]*Resource, error) {
	if c.resources == nil {
		resources := make([]*Resource, 0, len(c.parents))
		for _, p := range c.parents {
			r, err := c.CreateResource(p)
			if err != nil {
				return nil, err
			}
			resources = append(resources, r)
		}
		c.resources = resources
	}
	return append([]*Resource(nil), c.resources...), nil
}
