package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrTemplateNotFound is returned when a named template does not exist
// in the store directory.
var ErrTemplateNotFound = errors.New("template not found")

// Store loads template files from a single directory. Template names
// are bare file names; anything that would escape the directory is
// rejected before touching the filesystem.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store reads from
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the named template and returns its text
func (s *Store) Load(name string) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("read template %s: %w", name, err)
	}

	return string(data), nil
}

// List returns the names of all templates in the store, sorted
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list templates: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names, nil
}

// resolve maps a template name to its on-disk path, rejecting names
// that are empty, absolute, or contain path separators
func (s *Store) resolve(name string) (string, error) {
	if name == "" {
		return "", errors.New("template name required")
	}
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid template name: %s", name)
	}
	return filepath.Join(s.dir, name), nil
}
