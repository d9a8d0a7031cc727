package extension

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
	"github.com/glasswinglabs/glasswing/internal/shared/utils"
)

// Registry owns the extension catalog. Records live in memory with the
// store as the durable copy; mutations serialize on one lock while reads
// proceed concurrently.
type Registry struct {
	store   *Store
	packer  *Packer
	ident   *utils.ExtensionIdentifier
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu   sync.RWMutex
	byID map[string]Record
}

// NewRegistry loads the stored catalog into memory.
func NewRegistry(ctx context.Context, store *Store, packer *Packer, log *logging.Logger, metrics *monitoring.Metrics) (*Registry, error) {
	records, err := store.All(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "load extension catalog", err)
	}

	byID := make(map[string]Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	r := &Registry{
		store:   store,
		packer:  packer,
		ident:   utils.NewExtensionIdentifier(),
		log:     log,
		metrics: metrics,
		byID:    byID,
	}
	r.metrics.SetExtensionsRegistered(len(byID))
	return r, nil
}

// List returns every record sorted by name.
func (r *Registry) List() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Get returns the record for id.
func (r *Registry) Get(id string) (Record, error) {
	r.mu.RLock()
	rec, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return Record{}, errs.Newf(errs.NotFound, "extension %s not found", id)
	}
	return rec, nil
}

// LoadUnpacked validates an unpacked extension directory and registers it.
// Loading the same directory twice returns the existing record.
func (r *Registry) LoadUnpacked(ctx context.Context, path string) (Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Record{}, errs.Wrap(errs.Invalid, "resolve extension path", err)
	}

	manifest, err := ReadManifest(abs)
	if err != nil {
		return Record{}, err
	}

	id := r.ident.FromPath(abs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[id]; ok {
		return existing, nil
	}

	rec := Record{
		ID:          id,
		Name:        manifest.Name,
		Version:     manifest.Version,
		Description: manifest.Description,
		Enabled:     true,
		SourcePath:  abs,
		InstalledAt: time.Now().UTC(),
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return Record{}, errs.Wrap(errs.Unavailable, "persist extension", err)
	}
	r.byID[id] = rec
	r.metrics.SetExtensionsRegistered(len(r.byID))

	r.log.Info("extension loaded",
		zap.String("extension_id", id),
		zap.String("name", rec.Name),
		zap.String("version", rec.Version),
	)
	return rec, nil
}

// Pack archives an extension directory and records the result. A packed
// directory that was never loaded gets a disabled record; packing a loaded
// one updates its size in place.
func (r *Registry) Pack(ctx context.Context, path, signingKeyPath string) (Record, PackResult, error) {
	res, err := r.packer.Pack(ctx, path, signingKeyPath)
	if err != nil {
		r.metrics.RecordExtensionPack("failed")
		return Record{}, PackResult{}, err
	}

	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		abs = path
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[res.ID]
	if !ok {
		rec = Record{
			ID:          res.ID,
			Name:        res.Manifest.Name,
			Version:     res.Manifest.Version,
			Description: res.Manifest.Description,
			Enabled:     false,
			SourcePath:  abs,
			InstalledAt: time.Now().UTC(),
		}
	}
	rec.Version = res.Manifest.Version
	rec.PackedSize = res.Size

	if err := r.store.Put(ctx, rec); err != nil {
		r.metrics.RecordExtensionPack("failed")
		return Record{}, PackResult{}, errs.Wrap(errs.Unavailable, "persist extension", err)
	}
	r.byID[rec.ID] = rec
	r.metrics.SetExtensionsRegistered(len(r.byID))
	r.metrics.RecordExtensionPack("ok")

	r.log.Info("extension packed",
		zap.String("extension_id", rec.ID),
		zap.String("archive", res.ArchivePath),
		zap.Int64("size", res.Size),
		zap.Bool("signed", res.Signed),
	)
	return rec, res, nil
}

// Toggle flips the enabled flag. The change applies to instances launched
// afterwards; running sessions keep their profile.
func (r *Registry) Toggle(ctx context.Context, id string, enabled bool) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return Record{}, errs.Newf(errs.NotFound, "extension %s not found", id)
	}
	if rec.Enabled == enabled {
		return rec, nil
	}

	if _, err := r.store.SetEnabled(ctx, id, enabled); err != nil {
		return Record{}, errs.Wrap(errs.Unavailable, "persist extension toggle", err)
	}
	rec.Enabled = enabled
	r.byID[id] = rec

	r.log.Info("extension toggled",
		zap.String("extension_id", id),
		zap.Bool("enabled", enabled),
	)
	return rec, nil
}

// Remove deletes the record. The source directory stays on disk.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return errs.Newf(errs.NotFound, "extension %s not found", id)
	}

	if _, err := r.store.Delete(ctx, id); err != nil {
		return errs.Wrap(errs.Unavailable, "delete extension", err)
	}
	delete(r.byID, id)
	r.metrics.SetExtensionsRegistered(len(r.byID))

	r.log.Info("extension removed", zap.String("extension_id", id))
	return nil
}

// EnabledPaths returns the source paths of enabled extensions in stable
// name order.
func (r *Registry) EnabledPaths() []string {
	records := r.List()
	paths := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Enabled {
			paths = append(paths, rec.SourcePath)
		}
	}
	return paths
}

// LaunchArgs renders the browser switches that load the enabled
// extensions. Empty when nothing is enabled.
func (r *Registry) LaunchArgs() []string {
	paths := r.EnabledPaths()
	if len(paths) == 0 {
		return nil
	}
	joined := strings.Join(paths, ",")
	return []string{
		"--disable-extensions-except=" + joined,
		"--load-extension=" + joined,
	}
}

// Close releases the store.
func (r *Registry) Close() error {
	return r.store.Close()
}
