package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/schema"
)

const ext = ".yaml"

// Store implements ports.ProjectStore using the local filesystem.
// It stores projects as YAML documents in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".compositor/projects".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".compositor", "projects")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(projectID string) string {
	return filepath.Join(s.BasePath, projectID+ext)
}

// Save persists the document atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, projectID string, doc *schema.Document) error {
	if projectID == "" {
		return fmt.Errorf("projectID cannot be empty")
	}

	data, err := schema.Marshal(doc, schema.FormatYAML)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if err := writeAtomic(s.BasePath, s.path(projectID), data); err != nil {
		return fmt.Errorf("failed to save project %q: %w", projectID, err)
	}
	return nil
}

// Load retrieves the document from disk.
func (s *Store) Load(ctx context.Context, projectID string) (*schema.Document, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID cannot be empty")
	}

	data, err := os.ReadFile(s.path(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	doc, err := schema.Unmarshal(data, schema.FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal project %q: %w", projectID, err)
	}
	return doc, nil
}

// Delete removes the project file.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("projectID cannot be empty")
	}

	err := os.Remove(s.path(projectID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete project file: %w", err)
	}
	return nil
}

// List returns all stored project IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		projects = append(projects, strings.TrimSuffix(name, ext))
	}
	sort.Strings(projects)
	return projects, nil
}

// writeAtomic writes data next to dest and renames it into place.
func writeAtomic(dir, dest string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename fails on Windows when dest exists.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
