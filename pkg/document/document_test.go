package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoFrontMatter(t *testing.T) {
	text := "Just a body.\nTwo lines.\n"
	file, err := Parse("x.md", text)
	require.NoError(t, err)
	assert.Equal(t, 0, file.Meta.Len())
	assert.Equal(t, text, file.Body)
}

func TestParse_FrontMatterAndBody(t *testing.T) {
	text := "---\ntitle: Fix login\nnumber: 12\n---\n\nThe body.\n"
	file, err := Parse("x.md", text)
	require.NoError(t, err)
	assert.Equal(t, "Fix login", file.Meta.Get("title"))
	assert.Equal(t, 12, file.Meta.Get("number"))
	assert.Equal(t, "The body.\n", file.Body)
}

func TestParse_MissingClosingDelimiter(t *testing.T) {
	_, err := Parse("broken.md", "---\ntitle: Oops\n")
	require.Error(t, err)
	docErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "broken.md", docErr.Path)
	assert.Contains(t, docErr.Message, "closing front matter delimiter")
}

func TestParse_NonMappingHeader(t *testing.T) {
	_, err := Parse("list.md", "---\n- a\n- b\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestParse_ExplicitNullValue(t *testing.T) {
	file, err := Parse("x.md", "---\ntitle: T\nmilestone: null\n---\n")
	require.NoError(t, err)
	assert.True(t, file.Meta.Has("milestone"))
	assert.Nil(t, file.Meta.Get("milestone"))
}

func TestRender_PreservesKeyOrder(t *testing.T) {
	text := "---\nzeta: 1\nalpha: 2\nmid: 3\n---\n\nBody.\n"
	file, err := Parse("x.md", text)
	require.NoError(t, err)

	out, err := Render(file.Meta, file.Body)
	require.NoError(t, err)
	zeta := strings.Index(out, "zeta:")
	alpha := strings.Index(out, "alpha:")
	mid := strings.Index(out, "mid:")
	assert.True(t, zeta < alpha && alpha < mid, "key order changed:\n%s", out)
}

func TestRender_RoundTrip(t *testing.T) {
	text := "---\ntitle: Fix login\nlabels:\n    - bug\n    - urgent\n---\n\nThe body.\n"
	file, err := Parse("x.md", text)
	require.NoError(t, err)
	out, err := Render(file.Meta, file.Body)
	require.NoError(t, err)

	again, err := Parse("x.md", out)
	require.NoError(t, err)
	assert.Equal(t, file.Meta.Keys(), again.Meta.Keys())
	assert.Equal(t, file.Meta.Get("title"), again.Meta.Get("title"))
	assert.Equal(t, file.Meta.Get("labels"), again.Meta.Get("labels"))
	assert.Equal(t, file.Body, again.Body)
}

func TestUpdate_MergesAndKeepsPositions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issue.md")
	text := "---\ntitle: Fix login\nlabels:\n    - bug\n---\n\nBody text.\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	updates := NewFrontMatter()
	updates.Set("title", "Fix login flow")
	updates.Set("number", 42)
	require.NoError(t, Update(path, updates, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	file, err := Parse(path, string(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "labels", "number"}, file.Meta.Keys())
	assert.Equal(t, "Fix login flow", file.Meta.Get("title"))
	assert.Equal(t, 42, file.Meta.Get("number"))
	assert.Equal(t, "Body text.\n", file.Body)
}

func TestUpdate_UsesCachedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issue.md")
	// Nothing on disk yet; the cached representation stands in for it.
	meta := NewFrontMatter()
	meta.Set("title", "Cached")
	cached := &File{Path: path, Meta: meta, Body: "Body.\n"}

	updates := NewFrontMatter()
	updates.Set("number", 7)
	require.NoError(t, Update(path, updates, cached))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	file, err := Parse(path, string(raw))
	require.NoError(t, err)
	assert.Equal(t, "Cached", file.Meta.Get("title"))
	assert.Equal(t, 7, file.Meta.Get("number"))
	assert.Equal(t, "Body.\n", file.Body)
}
