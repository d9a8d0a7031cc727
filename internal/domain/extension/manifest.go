package extension

import (
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/glasswinglabs/glasswing/internal/shared/errs"
	"github.com/glasswinglabs/glasswing/internal/shared/utils"
)

// Manifest is the subset of manifest.json the registry cares about. The
// browser enforces the rest at load time.
type Manifest struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Description     string `json:"description"`
	ManifestVersion int    `json:"manifest_version"`
}

// ReadManifest loads and validates dir/manifest.json. A missing, oversized
// or malformed manifest fails with an Invalid code carrying the reason.
func ReadManifest(dir string) (Manifest, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Manifest{}, errs.Wrap(errs.Invalid, "extension directory unreadable", err)
	}
	if !info.IsDir() {
		return Manifest{}, errs.Newf(errs.Invalid, "%s is not a directory", dir)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return Manifest{}, errs.Wrap(errs.Invalid, "manifest.json missing", err)
	}
	if len(raw) > utils.MaxManifestSize {
		return Manifest{}, errs.Newf(errs.Invalid, "manifest.json exceeds %d bytes", utils.MaxManifestSize)
	}

	var m Manifest
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return Manifest{}, errs.Wrap(errs.Invalid, "manifest.json malformed", err)
	}

	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m Manifest) validate() error {
	if err := utils.ValidateName(m.Name, "name"); err != nil {
		return errs.Wrap(errs.Invalid, "manifest name", err)
	}
	if m.Version == "" {
		return errs.New(errs.Invalid, "manifest version is required")
	}
	if len(m.Description) > utils.MaxDescriptionLength {
		return errs.Newf(errs.Invalid, "manifest description exceeds %d bytes", utils.MaxDescriptionLength)
	}
	return nil
}
