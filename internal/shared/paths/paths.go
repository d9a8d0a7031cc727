package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Subdirectory names under the data root
const (
	// ExtensionsDir contains unpacked extension sources managed by the registry
	ExtensionsDir = "extensions"

	// PackedDir contains packed extension artifacts produced by the packer
	PackedDir = "packed"

	// DatabaseFile is the embedded store backing the extension registry
	DatabaseFile = "glasswing.db"
)

// DefaultRoot returns the default data root under the user's home directory,
// falling back to a temp location when no home is resolvable.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "glasswing")
	}
	return filepath.Join(home, ".glasswing")
}

// Expand resolves a leading "~" to the user's home directory.
func Expand(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Layout resolves data locations relative to a root directory.
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at path, expanding "~" if present.
func NewLayout(path string) Layout {
	if path == "" {
		path = DefaultRoot()
	}
	return Layout{Root: Expand(path)}
}

// Extensions returns the unpacked extension sources directory.
func (l Layout) Extensions() string {
	return filepath.Join(l.Root, ExtensionsDir)
}

// Packed returns the packed artifact directory.
func (l Layout) Packed() string {
	return filepath.Join(l.Root, PackedDir)
}

// Database returns the embedded store path.
func (l Layout) Database() string {
	return filepath.Join(l.Root, DatabaseFile)
}

// StandardDirectories returns all directories that should exist under the root.
func (l Layout) StandardDirectories() []string {
	return []string{
		l.Root,
		l.Extensions(),
		l.Packed(),
	}
}

// Ensure creates the standard directory tree with private permissions.
func (l Layout) Ensure() error {
	for _, dir := range l.StandardDirectories() {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
