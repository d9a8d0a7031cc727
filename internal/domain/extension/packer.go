package extension

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/glasswinglabs/glasswing/internal/shared/errs"
	"github.com/glasswinglabs/glasswing/internal/shared/utils"
)

// Files matching these globs never enter an archive; keys and previous
// pack output have no business being distributed.
var packExcludes = []string{"**/*.pem", "**/*.crx", "**/.*"}

// PackResult reports one completed pack.
type PackResult struct {
	ID          string
	Manifest    Manifest
	ArchivePath string
	Size        int64
	Signed      bool
}

// Packer turns an unpacked extension directory into a zip archive, with an
// optional detached RSA signature.
type Packer struct {
	outDir string
	ident  *utils.ExtensionIdentifier
}

func NewPacker(outDir string) *Packer {
	return &Packer{
		outDir: outDir,
		ident:  utils.NewExtensionIdentifier(),
	}
}

// Pack validates the manifest, archives the directory and optionally signs
// the archive. With a signing key the extension id derives from the public
// key, matching the browser's own derivation; otherwise it derives from the
// absolute source path.
func (p *Packer) Pack(ctx context.Context, srcDir, keyPath string) (PackResult, error) {
	abs, err := filepath.Abs(srcDir)
	if err != nil {
		return PackResult{}, errs.Wrap(errs.Invalid, "resolve source directory", err)
	}

	manifest, err := ReadManifest(abs)
	if err != nil {
		return PackResult{}, err
	}

	var key *rsa.PrivateKey
	if keyPath != "" {
		key, err = loadSigningKey(keyPath)
		if err != nil {
			return PackResult{}, err
		}
	}

	id := ""
	if key != nil {
		der, derErr := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if derErr != nil {
			return PackResult{}, errs.Wrap(errs.Invalid, "derive id from signing key", derErr)
		}
		id = p.ident.FromSeed(der)
	} else {
		id = p.ident.FromPath(abs)
	}

	files, err := p.collect(ctx, abs)
	if err != nil {
		return PackResult{}, err
	}
	if len(files) == 0 {
		return PackResult{}, errs.New(errs.Invalid, "extension directory has no packable files")
	}

	if err := os.MkdirAll(p.outDir, 0o700); err != nil {
		return PackResult{}, errs.Wrap(errs.Unavailable, "create output directory", err)
	}

	archivePath := filepath.Join(p.outDir, fmt.Sprintf("%s-%s.zip", slug(manifest.Name), manifest.Version))
	digest, err := p.writeArchive(abs, archivePath, files)
	if err != nil {
		return PackResult{}, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return PackResult{}, errs.Wrap(errs.Unavailable, "stat archive", err)
	}

	signed := false
	if key != nil {
		sig, sigErr := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest)
		if sigErr != nil {
			return PackResult{}, errs.Wrap(errs.Unavailable, "sign archive", sigErr)
		}
		if err := os.WriteFile(archivePath+".sig", sig, 0o600); err != nil {
			return PackResult{}, errs.Wrap(errs.Unavailable, "write signature", err)
		}
		signed = true
	}

	return PackResult{
		ID:          id,
		Manifest:    manifest,
		ArchivePath: archivePath,
		Size:        info.Size(),
		Signed:      signed,
	}, nil
}

// collect enumerates packable files relative to root. Dot directories are
// pruned outright; the exclusion globs handle the rest.
func (p *Packer) collect(ctx context.Context, root string) ([]string, error) {
	var mu sync.Mutex
	var files []string

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range packExcludes {
			if matched, _ := doublestar.Match(pattern, rel); matched {
				return nil
			}
		}

		mu.Lock()
		files = append(files, rel)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "enumerate extension files", err)
	}

	sort.Strings(files)
	return files, nil
}

// writeArchive streams the files into a deflate zip, hashing the archive
// bytes on the way through for the detached signature.
func (p *Packer) writeArchive(root, archivePath string, files []string) ([]byte, error) {
	f, err := os.Create(archivePath)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create archive", err)
	}
	defer f.Close()

	hasher := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hasher))
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, rel := range files {
		src, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			zw.Close()
			return nil, errs.Wrap(errs.Unavailable, "read "+rel, err)
		}

		info, err := src.Stat()
		if err != nil {
			src.Close()
			zw.Close()
			return nil, errs.Wrap(errs.Unavailable, "stat "+rel, err)
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			src.Close()
			zw.Close()
			return nil, errs.Wrap(errs.Unavailable, "archive header for "+rel, err)
		}
		header.Name = rel
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err == nil {
			_, err = io.Copy(w, src)
		}
		src.Close()
		if err != nil {
			zw.Close()
			return nil, errs.Wrap(errs.Unavailable, "archive "+rel, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "finalize archive", err)
	}
	return hasher.Sum(nil), nil
}

func loadSigningKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.Invalid, "signing key unreadable", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errs.New(errs.Invalid, "signing key is not PEM")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errs.Wrap(errs.Invalid, "signing key malformed", err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errs.Wrap(errs.Invalid, "signing key malformed", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errs.New(errs.Invalid, "signing key must be RSA")
		}
		return key, nil
	default:
		return nil, errs.Newf(errs.Invalid, "unsupported key type %q", block.Type)
	}
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "extension"
	}
	return b.String()
}
