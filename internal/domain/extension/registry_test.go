package extension

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
	"github.com/glasswinglabs/glasswing/internal/shared/utils"
)

var testMetrics = monitoring.NewMetrics()

func writeExtensionDir(t *testing.T, name, version string) string {
	t.Helper()
	dir := t.TempDir()
	manifest := `{"name":"` + name + `","version":"` + version + `","description":"test extension","manifest_version":3}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "background.js"), []byte("console.log('hi')"), 0o600))
	return dir
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)

	packer := NewPacker(filepath.Join(t.TempDir(), "packed"))
	r, err := NewRegistry(context.Background(), store, packer, logging.NewNop(), testMetrics)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestLoadUnpacked(t *testing.T) {
	r := newTestRegistry(t)
	dir := writeExtensionDir(t, "Dark Reader", "4.9.0")

	rec, err := r.LoadUnpacked(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, utils.IsExtensionID(rec.ID))
	assert.Equal(t, "Dark Reader", rec.Name)
	assert.Equal(t, "4.9.0", rec.Version)
	assert.True(t, rec.Enabled)
	assert.Equal(t, dir, rec.SourcePath)
	assert.False(t, rec.InstalledAt.IsZero())
}

func TestLoadUnpackedIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	dir := writeExtensionDir(t, "uBlock", "1.0.0")
	ctx := context.Background()

	first, err := r.LoadUnpacked(ctx, dir)
	require.NoError(t, err)
	second, err := r.LoadUnpacked(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, r.List(), 1)
}

func TestLoadUnpackedFailures(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	// Directory without a manifest.
	_, err := r.LoadUnpacked(ctx, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))

	// Manifest without a version.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{"name":"x"}`), 0o600))
	_, err = r.LoadUnpacked(ctx, dir)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))

	// Malformed JSON.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{"name":`), 0o600))
	_, err = r.LoadUnpacked(ctx, dir)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))

	// Missing directory entirely.
	_, err = r.LoadUnpacked(ctx, filepath.Join(dir, "nope"))
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))

	assert.Empty(t, r.List())
}

func TestListSortedByName(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "midway"} {
		_, err := r.LoadUnpacked(ctx, writeExtensionDir(t, name, "1.0"))
		require.NoError(t, err)
	}

	names := []string{}
	for _, rec := range r.List() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"alpha", "midway", "zeta"}, names)
}

func TestToggle(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	rec, err := r.LoadUnpacked(ctx, writeExtensionDir(t, "toggleme", "1.0"))
	require.NoError(t, err)
	require.True(t, rec.Enabled)

	toggled, err := r.Toggle(ctx, rec.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	// Flag survives List.
	listed := r.List()
	require.Len(t, listed, 1)
	assert.False(t, listed[0].Enabled)

	_, err = r.Toggle(ctx, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestRemove(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	rec, err := r.LoadUnpacked(ctx, writeExtensionDir(t, "bye", "1.0"))
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, rec.ID))
	assert.Empty(t, r.List())

	err = r.Remove(ctx, rec.ID)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestEnabledPathsAndLaunchArgs(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	assert.Nil(t, r.LaunchArgs())

	a, err := r.LoadUnpacked(ctx, writeExtensionDir(t, "aaa", "1.0"))
	require.NoError(t, err)
	b, err := r.LoadUnpacked(ctx, writeExtensionDir(t, "bbb", "1.0"))
	require.NoError(t, err)

	paths := r.EnabledPaths()
	assert.Equal(t, []string{a.SourcePath, b.SourcePath}, paths)

	args := r.LaunchArgs()
	require.Len(t, args, 2)
	joined := a.SourcePath + "," + b.SourcePath
	assert.Equal(t, "--disable-extensions-except="+joined, args[0])
	assert.Equal(t, "--load-extension="+joined, args[1])

	_, err = r.Toggle(ctx, a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{b.SourcePath}, r.EnabledPaths())
}

func TestCatalogSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ext.db")
	ctx := context.Background()
	dir := writeExtensionDir(t, "persistent", "2.0")

	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	r, err := NewRegistry(ctx, store, NewPacker(t.TempDir()), logging.NewNop(), testMetrics)
	require.NoError(t, err)

	rec, err := r.LoadUnpacked(ctx, dir)
	require.NoError(t, err)
	_, err = r.Toggle(ctx, rec.ID, false)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	store, err = OpenStore(dbPath)
	require.NoError(t, err)
	r, err = NewRegistry(ctx, store, NewPacker(t.TempDir()), logging.NewNop(), testMetrics)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "persistent", got.Name)
	assert.False(t, got.Enabled)
	assert.Equal(t, rec.InstalledAt.Unix(), got.InstalledAt.Unix())
}
