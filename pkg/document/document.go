// Package document implements the markdown-with-front-matter format used
// for plan files. A document is an optional YAML header delimited by "---"
// lines followed by a free-text body. Front matter key order is preserved
// across parse/render cycles so that rewriting a file only touches the
// fields being updated.
package document

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Error describes a malformed document. It always carries the path of the
// offending file so accumulated errors can be reported with context.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	return e.Path + ": " + e.Message
}

func errorf(path, format string, args ...any) *Error {
	return &Error{Path: path, Message: fmt.Sprintf(format, args...)}
}

// FrontMatter is an insertion-ordered key/value mapping. YAML maps in Go do
// not preserve key order, so the header is kept as an explicit key list plus
// a lookup table.
type FrontMatter struct {
	keys   []string
	values map[string]any
}

// NewFrontMatter returns an empty front matter mapping.
func NewFrontMatter() *FrontMatter {
	return &FrontMatter{values: make(map[string]any)}
}

// Has reports whether the key was present in the header, even with a null
// value. This distinction drives the unset-vs-explicit-null semantics of
// the milestone, labels, and assignees fields.
func (f *FrontMatter) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Get returns the raw decoded value for key, or nil when absent.
func (f *FrontMatter) Get(key string) any {
	return f.values[key]
}

// Set stores value under key. An existing key keeps its position; a new key
// is appended.
func (f *FrontMatter) Set(key string, value any) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Keys returns the keys in insertion order.
func (f *FrontMatter) Keys() []string {
	return f.keys
}

// Len returns the number of keys.
func (f *FrontMatter) Len() int {
	return len(f.keys)
}

// Clone returns an independent copy of the mapping.
func (f *FrontMatter) Clone() *FrontMatter {
	out := NewFrontMatter()
	for _, k := range f.keys {
		out.Set(k, f.values[k])
	}
	return out
}

// File is a parsed document: front matter plus body.
type File struct {
	Path string
	Meta *FrontMatter
	Body string
}

// Parse splits text into front matter and body. A document without a
// leading delimiter has empty metadata and the whole text as body. A
// leading delimiter without a closing one is an error.
func Parse(path, text string) (*File, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return &File{Path: path, Meta: NewFrontMatter(), Body: text}, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, errorf(path, "missing closing front matter delimiter %q", delimiter)
	}

	meta, err := parseHeader(path, strings.Join(lines[1:end], "\n"))
	if err != nil {
		return nil, err
	}
	body := strings.Join(lines[end+1:], "\n")
	// Render emits one blank line between the closing delimiter and the
	// body; strip it so parse/render round-trips.
	body = strings.TrimPrefix(body, "\n")
	return &File{Path: path, Meta: meta, Body: body}, nil
}

func parseHeader(path, text string) (*FrontMatter, error) {
	meta := NewFrontMatter()
	if strings.TrimSpace(text) == "" {
		return meta, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, errorf(path, "invalid front matter: %v", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return meta, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, errorf(path, "front matter must be a mapping")
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		var value any
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, errorf(path, "invalid front matter value for %q: %v", key, err)
		}
		meta.Set(key, value)
	}
	return meta, nil
}

// Render serializes front matter and body back to document text. Keys are
// emitted in insertion order.
func Render(meta *FrontMatter, body string) (string, error) {
	if meta == nil || meta.Len() == 0 {
		if body == "" {
			return "", nil
		}
		return strings.TrimSuffix(body, "\n") + "\n", nil
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range meta.Keys() {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(meta.Get(key)); err != nil {
			return "", fmt.Errorf("encode front matter key %q: %w", key, err)
		}
		mapping.Content = append(mapping.Content, keyNode, valueNode)
	}
	header, err := yaml.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("marshal front matter: %w", err)
	}

	sections := []string{delimiter, strings.TrimSuffix(string(header), "\n"), delimiter, ""}
	if body != "" {
		sections = append(sections, strings.TrimSuffix(body, "\n"))
	}
	return strings.Join(sections, "\n") + "\n", nil
}

// Update merges updates into the file's front matter and rewrites it.
// Existing keys keep their position, new keys are appended. When cached is
// non-nil it is used instead of re-reading and re-parsing the file; the
// caller guarantees it matches the on-disk content except for the fields
// being updated.
func Update(path string, updates *FrontMatter, cached *File) error {
	var file *File
	if cached != nil {
		file = cached
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		file, err = Parse(path, string(raw))
		if err != nil {
			return err
		}
	}

	merged := file.Meta.Clone()
	for _, key := range updates.Keys() {
		merged.Set(key, updates.Get(key))
	}
	text, err := Render(merged, file.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
