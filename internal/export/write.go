package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact saves a into dir under a.Filename and returns the final path.
// Data goes to a temporary file first; the temporary is removed on every path.
func WriteArtifact(dir string, a Artifact) (string, error) {
	if a.Filename == "" || filepath.Base(a.Filename) != a.Filename {
		return "", fmt.Errorf("invalid artifact filename %q", a.Filename)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+a.Filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(a.Data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", a.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", a.Filename, err)
	}

	final := filepath.Join(dir, a.Filename)
	if err := os.Rename(tmpName, final); err != nil {
		return "", fmt.Errorf("rename %s: %w", a.Filename, err)
	}
	return final, nil
}
