package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumematch/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.md"), "a")
	writeFile(t, filepath.Join(root, "nested", "c.txt"), "c")
	writeFile(t, filepath.Join(root, "archive", "old.txt"), "old")
	writeFile(t, filepath.Join(root, "photo.png"), "png")

	w := NewWalker([]string{"**/*.txt", "**/*.md"}, []string{"archive/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
		assert.Positive(t, f.Size)
	}
	assert.Equal(t, []string{"a.md", "b.txt", "nested/c.txt"}, rel)
}

func TestWalkerMissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestTextExtractor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.md")
	writeFile(t, path, "\uFEFF# Jane Doe\nGo engineer \xff\n")

	text, err := NewTextExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "# Jane Doe\nGo engineer �\n", text)
}

func TestTextExtractorUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.pdf")
	writeFile(t, path, "%PDF-1.7")

	_, err := NewTextExtractor().Extract(path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ".pdf", unsupported.Ext)
}

func TestTextExtractorEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	writeFile(t, empty, "  \n")

	_, err := NewTextExtractor().Extract(empty)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewTextExtractor().Extract(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
