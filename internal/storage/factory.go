package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"vdstore/internal/files"
	"vdstore/internal/legacy"
)

// Factory builds backends over one filesystem and one (optional) legacy
// engine.
type Factory struct {
	fs       files.FS
	legacy   legacy.Store
	migrator *Migrator
	stores   *xsync.MapOf[string, *FileBackend]
}

// NewFactory returns a Factory. legacyStore may be nil.
func NewFactory(fsys files.FS, legacyStore legacy.Store) *Factory {
	return &Factory{
		fs:       fsys,
		legacy:   legacyStore,
		migrator: NewMigrator(fsys, legacyStore),
		stores:   xsync.NewMapOf[string, *FileBackend](),
	}
}

func encodeDefault(defaultDoc any) (string, error) {
	if defaultDoc == nil {
		defaultDoc = map[string]any{}
	}
	data, err := json.Marshal(defaultDoc)
	if err != nil {
		return "", fmt.Errorf("encoding default document: %w", err)
	}
	return string(data), nil
}

// NewFileBackend returns a backend for a file path relative to the
// documents root, with no migration in front of it. A nil default is {}.
func (f *Factory) NewFileBackend(path string, defaultDoc any) (*FileBackend, error) {
	defaultText, err := encodeDefault(defaultDoc)
	if err != nil {
		return nil, err
	}
	return newFileBackend(f.fs, path, defaultText, Resolved()), nil
}

// NewLegacyBackend returns the backend of storeID and starts its migration
// from the legacy engine right away. Backends are memoized per id for the
// Factory's lifetime, so the migration runs once however many consumers ask;
// later calls get the first backend and its default document.
func (f *Factory) NewLegacyBackend(storeID string, defaultDoc any) (*FileBackend, error) {
	if b, ok := f.stores.Load(storeID); ok {
		return b, nil
	}
	defaultText, err := encodeDefault(defaultDoc)
	if err != nil {
		return nil, err
	}
	b, _ := f.stores.LoadOrCompute(storeID, func() *FileBackend {
		gate := Start(func() error {
			return f.migrator.Migrate(storeID, defaultText)
		})
		return newFileBackend(f.fs, StorePath(storeID), defaultText, gate)
	})
	return b, nil
}

// Purge deletes storeID from the legacy engine and removes its file.
// Missing data is not an error. The overflow cache is left alone.
func (f *Factory) Purge(storeID string) error {
	if f.legacy != nil {
		_, ok, err := f.legacy.Get(storeID)
		if err != nil {
			return err
		}
		if ok {
			if err := f.legacy.Remove(storeID); err != nil {
				return err
			}
		}
	}

	target := StorePath(storeID)
	exists, err := f.fs.Exists(files.Documents, target)
	if err != nil {
		return err
	}
	if exists {
		if err := f.fs.Remove(files.Documents, target); err != nil && !files.IsNotFound(err) {
			return err
		}
	}
	logger.Debug("purged store", "store", storeID)
	return nil
}

// MigrateAll migrates every store still held by the legacy engine, at most
// limit at a time, using {} as their default. It returns the ids it found.
func (f *Factory) MigrateAll(ctx context.Context, limit int) ([]string, error) {
	if f.legacy == nil {
		return nil, nil
	}
	ids, err := f.legacy.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing legacy stores: %w", err)
	}
	if limit <= 0 {
		limit = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			b, err := f.NewLegacyBackend(id, nil)
			if err != nil {
				return err
			}
			return b.Ready(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}
