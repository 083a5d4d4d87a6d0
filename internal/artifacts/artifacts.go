package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// NewRunID returns a fresh identifier for one command run.
func NewRunID() string {
	return uuid.New().String()
}

// Name builds an artifact file name such as search-issues_<runID>.csv.
func Name(command, runID, ext string) string {
	return fmt.Sprintf("%s_%s.%s", command, runID, strings.TrimPrefix(ext, "."))
}

// ExpandPath resolves paths that include a tilde (~) to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}

// Save writes data to dir/name, creating dir when needed, and returns the full path.
func Save(logger hclog.Logger, dir, name string, data []byte) (string, error) {
	dir, err := ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder %q: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, fmt.Errorf("error writing artifact: %w", err)
	}
	logger.Info("artifact saved to file", "path", path)
	return path, nil
}
