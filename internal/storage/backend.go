// Package storage persists named JSON documents ("stores") as files and
// migrates them out of the legacy key-value engine on first use.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"vdstore/internal/files"
	"vdstore/internal/logging"
)

var logger = logging.For("storage")

// Backend is the handle consumers use for one store.
type Backend interface {
	Get(ctx context.Context) (any, error)
	Set(ctx context.Context, doc any) error
}

// FileBackend keeps one document in one file under the documents root.
// It caches nothing: every call reads or writes the file. Calls wait for
// the backend's migration gate first; past that, concurrent Sets are not
// ordered and the last rename wins.
type FileBackend struct {
	fs          files.FS
	path        string
	defaultText string
	gate        *Gate
	log         *slog.Logger
}

func newFileBackend(fsys files.FS, path, defaultText string, gate *Gate) *FileBackend {
	if gate == nil {
		gate = Resolved()
	}
	return &FileBackend{
		fs:          fsys,
		path:        path,
		defaultText: defaultText,
		gate:        gate,
		log:         logger.With("path", path),
	}
}

// Path is the file name relative to the documents root.
func (b *FileBackend) Path() string {
	return b.path
}

// Ready waits for the migration gate.
func (b *FileBackend) Ready(ctx context.Context) error {
	return b.gate.Wait(ctx)
}

// Get returns the stored document. A missing or unparseable file is
// replaced by the default document, which is then returned.
func (b *FileBackend) Get(ctx context.Context) (any, error) {
	if err := b.gate.Wait(ctx); err != nil {
		return nil, err
	}

	exists, err := b.fs.Exists(files.Documents, b.path)
	if err != nil {
		return nil, err
	}
	if exists {
		text, err := b.fs.ReadText(files.Documents, b.path)
		if err != nil {
			return nil, err
		}
		var doc any
		if err := json.Unmarshal([]byte(text), &doc); err == nil {
			return doc, nil
		}
		b.log.Warn("corrupt store file, restoring default")
	}

	if err := b.fs.WriteText(files.Documents, b.path, b.defaultText); err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal([]byte(b.defaultText), &doc); err != nil {
		return nil, fmt.Errorf("decoding default document: %w", err)
	}
	return doc, nil
}

// Set replaces the stored document with doc.
func (b *FileBackend) Set(ctx context.Context, doc any) error {
	if err := b.gate.Wait(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return b.fs.WriteText(files.Documents, b.path, string(data))
}

// GetAs reads the document of b into a T.
func GetAs[T any](ctx context.Context, b Backend) (T, error) {
	var out T
	doc, err := b.Get(ctx)
	if err != nil {
		return out, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("encoding document: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding document into %T: %w", out, err)
	}
	return out, nil
}
