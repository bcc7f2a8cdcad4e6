package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"vdstore/internal/files"
)

// memLegacy is an in-memory legacy.Store that counts calls.
type memLegacy struct {
	mu      sync.Mutex
	data    map[string]string
	gets    int
	removes []string
	getErr  error
}

func newMemLegacy(kv map[string]string) *memLegacy {
	data := make(map[string]string, len(kv))
	for k, v := range kv {
		data[k] = v
	}
	return &memLegacy{data: data}
}

func (l *memLegacy) Get(key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gets++
	if l.getErr != nil {
		return "", false, l.getErr
	}
	v, ok := l.data[key]
	return v, ok, nil
}

func (l *memLegacy) Remove(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removes = append(l.removes, key)
	delete(l.data, key)
	return nil
}

func (l *memLegacy) Keys() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.data))
	for k := range l.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (l *memLegacy) has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.data[key]
	return ok
}

func (l *memLegacy) removed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.removes...)
}

// countingFS wraps a files.FS, counting writes and optionally failing them.
type countingFS struct {
	files.FS
	mu        sync.Mutex
	writes    map[string]int
	failWrite error
}

func (c *countingFS) WriteText(dir files.Dir, name, text string) error {
	c.mu.Lock()
	if c.writes == nil {
		c.writes = make(map[string]int)
	}
	c.writes[name]++
	fail := c.failWrite
	c.mu.Unlock()
	if fail != nil {
		return fail
	}
	return c.FS.WriteText(dir, name, text)
}

func (c *countingFS) writesTo(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[name]
}

var errDiskFull = errors.New("disk full")

func newTestFS(t *testing.T) *countingFS {
	t.Helper()
	return &countingFS{FS: files.NewWithFs(afero.NewMemMapFs(), "/docs", "/cache")}
}

func readFile(t *testing.T, fsys files.FS, name string) string {
	t.Helper()
	text, err := fsys.ReadText(files.Documents, name)
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return text
}

func writeFile(t *testing.T, fsys files.FS, dir files.Dir, name, text string) {
	t.Helper()
	if err := fsys.WriteText(dir, name, text); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
