package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceHelpers(t *testing.T) {
	t.Run("Year prefers published year", func(t *testing.T) {
		year := 1999
		r := &Resource{PublishedYear: &year, CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
		assert.Equal(t, 1999, r.Year())

		r.PublishedYear = nil
		assert.Equal(t, 2020, r.Year(), "Expected creation year as fallback")
	})

	t.Run("SearchText includes abstract if present", func(t *testing.T) {
		r := &Resource{Title: "Graphs", Description: "about nodes"}
		assert.Equal(t, "Graphs about nodes", r.SearchText())

		r.Abstract = "and edges"
		assert.Equal(t, "Graphs about nodes and edges", r.SearchText())
	})

	t.Run("QualityOr falls back", func(t *testing.T) {
		r := &Resource{}
		assert.Equal(t, 0.5, r.QualityOr(0.5))

		q := 0.9
		r.Quality = &q
		assert.Equal(t, 0.9, r.QualityOr(0.5))
	})
}

func TestNewResourceFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Markdown file is read", func(t *testing.T) {
		path := filepath.Join(dir, "notes.md")
		require.NoError(t, os.WriteFile(path, []byte("# Notes\nsee https://example.com"), 0600))

		r, err := NewResourceFromFile(path, Metadata{"origin": "test"})
		require.NoError(t, err)
		assert.Equal(t, "notes", r.Title)
		assert.Equal(t, FormatMarkdown, r.ContentFormat)
		assert.Contains(t, r.Content, "https://example.com")
	})

	t.Run("PDF keeps the path", func(t *testing.T) {
		path := filepath.Join(dir, "paper.pdf")
		r, err := NewResourceFromFile(path, nil)
		require.NoError(t, err)
		assert.Equal(t, FormatPDF, r.ContentFormat)
		assert.Equal(t, path, r.Content)
	})

	t.Run("Missing file returns error", func(t *testing.T) {
		_, err := NewResourceFromFile(filepath.Join(dir, "missing.html"), nil)
		assert.Error(t, err)
	})

	t.Run("Unknown extension falls back to html", func(t *testing.T) {
		assert.Equal(t, FormatHTML, FormatForExtension(".txt"))
	})
}
