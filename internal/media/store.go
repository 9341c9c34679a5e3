package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes downloaded provider media under a public-serving root.
type Store struct {
	dir string
}

// NewStore prepares the media directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "public"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save persists a media binary under its derived filename and returns the
// filename used. Path separators in provider-supplied names are stripped.
func (s *Store) Save(filename string, data []byte) (string, error) {
	filename = sanitize(filename)
	if filename == "" {
		return "", fmt.Errorf("empty media filename")
	}
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media %s: %w", filename, err)
	}
	return filename, nil
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
