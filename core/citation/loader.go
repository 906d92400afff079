package citation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siherrmann/kgraph/model"
)

// ContentLoader returns the raw content of a resource.
type ContentLoader interface {
	Load(ctx context.Context, resource *model.Resource) ([]byte, error)
}

// StoredContentLoader serves the content stored on the resource.
// For pdf resources the stored content is a file path and the file is read.
type StoredContentLoader struct{}

func (StoredContentLoader) Load(ctx context.Context, resource *model.Resource) ([]byte, error) {
	if resource.ContentFormat == model.FormatPDF {
		if resource.Content == "" {
			return nil, fmt.Errorf("pdf resource %s has no file path", resource.ID)
		}
		return os.ReadFile(filepath.Clean(resource.Content))
	}
	return []byte(resource.Content), nil
}
