package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfirmationPrefix starts every successful save confirmation
const ConfirmationPrefix = "Document saved to: "

// Persister writes a finished document
type Persister interface {
	Save(filename, content string) (string, error)
}

// FilePersister writes documents into a single output directory
type FilePersister struct {
	dir string
}

// NewFilePersister creates a persister rooted at dir
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{dir: dir}
}

// Dir returns the output directory
func (p *FilePersister) Dir() string { return p.dir }

// Save writes content to <dir>/<filename>, replacing any existing file, and
// returns a confirmation naming the path. filename must be a bare name.
func (p *FilePersister) Save(filename, content string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", NewError(KindPersistenceFailed, StageSave, fmt.Sprintf("invalid file name %q", filename), err)
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", NewError(KindPersistenceFailed, StageSave, fmt.Sprintf("failed to create output directory %s", p.dir), err)
	}

	path := filepath.Join(p.dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", NewError(KindPersistenceFailed, StageSave, fmt.Sprintf("failed to write %s", path), err)
	}
	return ConfirmationPrefix + path, nil
}

func validateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("empty name")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name contains a path separator")
	case strings.Contains(name, ".."):
		return fmt.Errorf("name contains '..'")
	}
	return nil
}

// PathFromConfirmation extracts the saved path, or "" for other text
func PathFromConfirmation(confirmation string) string {
	if !strings.HasPrefix(confirmation, ConfirmationPrefix) {
		return ""
	}
	return strings.TrimPrefix(confirmation, ConfirmationPrefix)
}
