package extension

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasswinglabs/glasswing/internal/shared/errs"
	"github.com/glasswinglabs/glasswing/internal/shared/utils"
)

func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	names := []string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestPackArchivesDirectory(t *testing.T) {
	dir := writeExtensionDir(t, "My Extension", "1.2.3")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "icons"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icons", "icon.png"), []byte("png"), 0o600))

	out := filepath.Join(t.TempDir(), "packed")
	p := NewPacker(out)

	res, err := p.Pack(context.Background(), dir, "")
	require.NoError(t, err)

	assert.True(t, utils.IsExtensionID(res.ID))
	assert.Equal(t, filepath.Join(out, "my-extension-1.2.3.zip"), res.ArchivePath)
	assert.Greater(t, res.Size, int64(0))
	assert.False(t, res.Signed)

	assert.ElementsMatch(t,
		[]string{"manifest.json", "background.js", "icons/icon.png"},
		archiveNames(t, res.ArchivePath),
	)
}

func TestPackExcludesSecretsAndDotfiles(t *testing.T) {
	dir := writeExtensionDir(t, "cleaner", "1.0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "key.pem"), []byte("secret"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.crx"), []byte("crx"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("x"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "cert.pem"), []byte("secret"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.js"), []byte("js"), 0o600))

	p := NewPacker(filepath.Join(t.TempDir(), "packed"))
	res, err := p.Pack(context.Background(), dir, "")
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"manifest.json", "background.js", "src/app.js"},
		archiveNames(t, res.ArchivePath),
	)
}

func TestPackRequiresManifest(t *testing.T) {
	p := NewPacker(t.TempDir())

	_, err := p.Pack(context.Background(), t.TempDir(), "")
	require.Error(t, err)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))
}

func TestPackSigned(t *testing.T) {
	dir := writeExtensionDir(t, "signed", "1.0")

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "signing.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(keyPath, pemBytes, 0o600))

	p := NewPacker(filepath.Join(t.TempDir(), "packed"))
	res, err := p.Pack(context.Background(), dir, keyPath)
	require.NoError(t, err)
	assert.True(t, res.Signed)

	// Id derives from the public key, not the path.
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	ident := utils.NewExtensionIdentifier()
	assert.Equal(t, ident.FromSeed(der), res.ID)

	// The detached signature verifies against the archive bytes.
	archive, err := os.ReadFile(res.ArchivePath)
	require.NoError(t, err)
	sig, err := os.ReadFile(res.ArchivePath + ".sig")
	require.NoError(t, err)
	digest := sha256.Sum256(archive)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig))
}

func TestPackRejectsBadKey(t *testing.T) {
	dir := writeExtensionDir(t, "badkey", "1.0")
	keyPath := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(keyPath, []byte("not a pem"), 0o600))

	p := NewPacker(t.TempDir())
	_, err := p.Pack(context.Background(), dir, keyPath)
	require.Error(t, err)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))

	_, err = p.Pack(context.Background(), dir, filepath.Join(t.TempDir(), "missing.pem"))
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))
}

func TestPackIDStable(t *testing.T) {
	dir := writeExtensionDir(t, "stable", "1.0")
	p := NewPacker(filepath.Join(t.TempDir(), "packed"))

	first, err := p.Pack(context.Background(), dir, "")
	require.NoError(t, err)
	second, err := p.Pack(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestPackRecordsMetadata(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	dir := writeExtensionDir(t, "packable", "3.1")

	rec, res, err := r.Pack(ctx, dir, "")
	require.NoError(t, err)
	assert.Equal(t, res.Size, rec.PackedSize)
	assert.False(t, rec.Enabled, "packing alone must not enable an extension")

	// Packing a loaded extension updates its size but keeps it enabled.
	loaded, err := r.LoadUnpacked(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, rec.ID, loaded.ID)

	_, err = r.Toggle(ctx, rec.ID, true)
	require.NoError(t, err)
	rec2, _, err := r.Pack(ctx, dir, "")
	require.NoError(t, err)
	assert.True(t, rec2.Enabled)
	assert.Equal(t, res.Size, rec2.PackedSize)
}
