package citation

import (
	"strings"
	"testing"

	"github.com/siherrmann/kgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCitation(t *testing.T) {
	tests := []struct {
		url      string
		expected model.CitationType
	}{
		{"https://example.org/files/data.CSV", model.CitationTypeDataset},
		{"https://github.com/org/data.json", model.CitationTypeDataset},
		{"https://github.com/org/repo", model.CitationTypeCode},
		{"https://www.gitlab.com/group/project", model.CitationTypeCode},
		{"https://doi.org/10.1000/182", model.CitationTypeReference},
		{"https://export.arxiv.org/abs/1706.03762", model.CitationTypeReference},
		{"https://example.com/blog", model.CitationTypeGeneral},
		{"://broken", model.CitationTypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyCitation(tt.url))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Run("Scheme host fragment and trailing slash", func(t *testing.T) {
		assert.Equal(t, NormalizeURL("https://example.com/path"), NormalizeURL("HTTPS://Example.com/path/#frag"))
		assert.Equal(t, "https://example.com/path", NormalizeURL("HTTPS://Example.com/path/#frag"))
	})

	t.Run("Path case and query are kept", func(t *testing.T) {
		assert.Equal(t, "https://foo.com/A?x=1", NormalizeURL("https://FOO.com/A/?x=1"))
	})

	t.Run("Root path", func(t *testing.T) {
		assert.Equal(t, "https://foo.com", NormalizeURL("https://foo.com/"))
	})
}

func TestContextSnippet(t *testing.T) {
	t.Run("Window around the match", func(t *testing.T) {
		text := strings.Repeat("a", 100) + "TARGET" + strings.Repeat("b", 100)
		snippet := ContextSnippet(text, 100, 106)
		require.NotNil(t, snippet)
		assert.Equal(t, strings.Repeat("a", 50)+"TARGET"+strings.Repeat("b", 50), *snippet)
	})

	t.Run("Whitespace is collapsed and multi-byte runes stay intact", func(t *testing.T) {
		text := "Über   die\n\nQuelle https://x.org ist äußerst gut"
		start := strings.Index(text, "https")
		snippet := ContextSnippet(text, start, start+len("https://x.org"))
		require.NotNil(t, snippet)
		assert.Equal(t, "Über die Quelle https://x.org ist äußerst gut", *snippet)
	})

	t.Run("Invalid range", func(t *testing.T) {
		assert.Nil(t, ContextSnippet("abc", 2, 10))
		assert.Nil(t, ContextSnippet("   ", 1, 2))
	})
}
