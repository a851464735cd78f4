package api

import (
	"bytes"
	"io"
	"mime/multipart"
	"sort"
)

// EventIDParameter is the request parameter carrying the id of a user event.
const EventIDParameter = "_eventId"

// MultipartFile is an uploaded file submitted with a request.
type MultipartFile interface {
	Name() string
	OriginalFilename() string
	ContentType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// MockMultipartFile is an in-memory MultipartFile for tests.
type MockMultipartFile struct {
	FieldName   string
	Filename    string
	ContentKind string
	Content     []byte
}

var _ MultipartFile = (*MockMultipartFile)(nil)

// NewMockMultipartFile creates an in-memory upload for the given form field.
func NewMockMultipartFile(field, filename, contentType string, content []byte) *MockMultipartFile {
	return &MockMultipartFile{
		FieldName:   field,
		Filename:    filename,
		ContentKind: contentType,
		Content:     content,
	}
}

func (f *MockMultipartFile) Name() string             { return f.FieldName }
func (f *MockMultipartFile) OriginalFilename() string { return f.Filename }
func (f *MockMultipartFile) ContentType() string      { return f.ContentKind }
func (f *MockMultipartFile) Size() int64              { return int64(len(f.Content)) }

func (f *MockMultipartFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Content)), nil
}

// FileHeaderFile adapts a parsed multipart.FileHeader.
type FileHeaderFile struct {
	Field  string
	Header *multipart.FileHeader
}

var _ MultipartFile = FileHeaderFile{}

func (f FileHeaderFile) Name() string             { return f.Field }
func (f FileHeaderFile) OriginalFilename() string { return f.Header.Filename }
func (f FileHeaderFile) Size() int64              { return f.Header.Size }

func (f FileHeaderFile) ContentType() string {
	return f.Header.Header.Get("Content-Type")
}

func (f FileHeaderFile) Open() (io.ReadCloser, error) {
	return f.Header.Open()
}

// ParameterMap holds the parameters of one simulated request. Plain values
// are kept as string slices; files are stored separately.
type ParameterMap struct {
	values map[string][]string
	files  map[string]MultipartFile
}

// NewParameterMap returns an empty parameter map.
func NewParameterMap() *ParameterMap {
	return &ParameterMap{
		values: make(map[string][]string),
		files:  make(map[string]MultipartFile),
	}
}

// Put sets a single-valued parameter.
func (p *ParameterMap) Put(name, value string) {
	p.values[name] = []string{value}
}

// PutArray sets a multi-valued parameter.
func (p *ParameterMap) PutArray(name string, values []string) {
	p.values[name] = append([]string(nil), values...)
}

// PutFile attaches an uploaded file.
func (p *ParameterMap) PutFile(name string, file MultipartFile) {
	p.files[name] = file
}

// Get returns the first value of name, or "".
func (p *ParameterMap) Get(name string) string {
	if p == nil {
		return ""
	}
	if v := p.values[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// GetArray returns all values of name.
func (p *ParameterMap) GetArray(name string) []string {
	if p == nil {
		return nil
	}
	return p.values[name]
}

// GetFile returns the file uploaded under name, or nil.
func (p *ParameterMap) GetFile(name string) MultipartFile {
	if p == nil {
		return nil
	}
	return p.files[name]
}

// Contains reports whether a value or a file was submitted under name.
func (p *ParameterMap) Contains(name string) bool {
	if p == nil {
		return false
	}
	if _, ok := p.values[name]; ok {
		return true
	}
	_, ok := p.files[name]
	return ok
}

// Names returns all parameter names, sorted.
func (p *ParameterMap) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.values)+len(p.files))
	for k := range p.values {
		names = append(names, k)
	}
	for k := range p.files {
		if _, dup := p.values[k]; !dup {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Size returns the number of distinct parameter names.
func (p *ParameterMap) Size() int {
	return len(p.Names())
}

// AsMap flattens the parameters: single values become strings, multiple
// values stay []string and files are returned as MultipartFile.
func (p *ParameterMap) AsMap() map[string]any {
	out := make(map[string]any)
	if p == nil {
		return out
	}
	for k, v := range p.values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = append([]string(nil), v...)
		}
	}
	for k, f := range p.files {
		out[k] = f
	}
	return out
}
