package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModelUsesCachedDirectory(t *testing.T) {
	tests := []struct {
		name      string
		modelName string
		onnxFile  string
		dir       string
	}{
		{"Owner and model", "kgraph-test/ner-model", "model.onnx", "kgraph-test_ner-model"},
		{"Nested onnx file", "kgraph-test/embedder", "onnx/model.onnx", "kgraph-test_embedder"},
		{"No owner", "kgraph-test-plain", "", "kgraph-test-plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cached := filepath.Join(modelDir, tt.dir)
			require.NoError(t, os.MkdirAll(cached, 0750), "Expected cache directory creation to succeed")
			t.Cleanup(func() { os.RemoveAll(cached) })

			path, err := PrepareModel(tt.modelName, tt.onnxFile)
			assert.NoError(t, err, "Expected cached model to be returned without download")
			assert.Equal(t, cached, path, "Expected slashes in the model name to be replaced")
		})
	}
}

func TestPrepareModelStatError(t *testing.T) {
	t.Run("Model directory path through a file", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(modelDir, 0750))
		blocker := filepath.Join(modelDir, "kgraph-test-blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
		t.Cleanup(func() { os.Remove(blocker) })

		// A regular file with the sanitized name counts as a cached model.
		path, err := PrepareModel("kgraph-test-blocker", "")
		assert.NoError(t, err)
		assert.Equal(t, blocker, path)
	})
}
