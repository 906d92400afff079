package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

const modelDir = "./models"

// PrepareModel downloads a huggingface model into ./models unless it is already present
// and returns its local path. onnxFilePath selects the onnx file for repos with several.
func PrepareModel(modelName string, onnxFilePath string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat model directory: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	downloadOptions := hugot.NewDownloadOptions()
	if onnxFilePath != "" {
		downloadOptions.OnnxFilePath = onnxFilePath
	}
	downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}

	return downloadedPath, nil
}
