package model

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ResourceTypeDefault = "resource"
	ResourceTypeSource  = "source"
	ResourceTypeCited   = "cited"
	ResourceTypeCiting  = "citing"
	ResourceTypeConcept = "concept"
)

// Content formats understood by the citation extractors.
const (
	FormatHTML     = "html"
	FormatPDF      = "pdf"
	FormatMarkdown = "markdown"
)

// Resource is a node of the knowledge graph.
type Resource struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Abstract           string    `json:"abstract,omitempty"`
	Type               string    `json:"type"`
	SourceURL          string    `json:"source_url,omitempty"`
	ContentFormat      string    `json:"content_format,omitempty"`
	Content            string    `json:"content,omitempty"` // raw content, or a file path for pdf
	Embedding          []float32 `json:"embedding,omitempty"`
	Subjects           []string  `json:"subjects,omitempty"`
	ClassificationCode *string   `json:"classification_code,omitempty"`
	Quality            *float64  `json:"quality,omitempty"`
	PublishedYear      *int      `json:"published_year,omitempty"`
	Metadata           Metadata  `json:"metadata,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasEmbedding reports whether the resource carries a non-empty embedding.
func (r *Resource) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// Year returns the publication year or the creation year if it is unknown.
func (r *Resource) Year() int {
	if r.PublishedYear != nil {
		return *r.PublishedYear
	}
	return r.CreatedAt.Year()
}

// SearchText is the text matched by concept search: title, description and abstract.
func (r *Resource) SearchText() string {
	parts := []string{r.Title, r.Description}
	if r.Abstract != "" {
		parts = append(parts, r.Abstract)
	}
	return strings.Join(parts, " ")
}

// QualityOr returns the quality score or fallback if none is set.
func (r *Resource) QualityOr(fallback float64) float64 {
	if r.Quality == nil {
		return fallback
	}
	return *r.Quality
}

// NewResourceFromFile reads a file into a Resource.
// The title defaults to the file name and the format is derived from the extension.
// For pdf files only the path is kept, the citation extractor reads the file itself.
func NewResourceFromFile(filePath string, metadata Metadata) (*Resource, error) {
	filename := filepath.Base(filePath)
	ext := strings.ToLower(filepath.Ext(filename))
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if title == "" {
		title = filename
	}

	resource := &Resource{
		Title:         title,
		Type:          ResourceTypeDefault,
		ContentFormat: FormatForExtension(ext),
		Metadata:      metadata,
	}

	if resource.ContentFormat == FormatPDF {
		resource.Content = filePath
		return resource, nil
	}

	content, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, err
	}
	resource.Content = string(content)

	return resource, nil
}

// FormatForExtension maps a file extension to a content format, html is the fallback.
func FormatForExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return FormatPDF
	case "md", "markdown":
		return FormatMarkdown
	default:
		return FormatHTML
	}
}
