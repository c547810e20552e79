package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Ecosystem areas inside a session arena. Every record produces one
// file in each.
const (
	AreaAvaya = "avaya"
	AreaAscom = "ascom"
)

// Session is one run's private working arena. Each run gets a fresh
// uniquely named directory so concurrent runs never see each other's
// files.
type Session struct {
	root string
}

func NewSession(workRoot string) (*Session, error) {
	if err := os.MkdirAll(workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	root := filepath.Join(workRoot, "run-"+uuid.NewString())
	// Reset unconditionally: stale content under this name must not
	// leak into the archive.
	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("reset arena: %w", err)
	}
	for _, area := range []string{AreaAvaya, AreaAscom} {
		if err := os.MkdirAll(filepath.Join(root, area), 0o755); err != nil {
			return nil, fmt.Errorf("create %s area: %w", area, err)
		}
	}
	return &Session{root: root}, nil
}

func (s *Session) Root() string { return s.root }

// Close removes the arena and everything in it. Safe to call more
// than once.
func (s *Session) Close() error {
	return os.RemoveAll(s.root)
}
