package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func memStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	base := afero.NewMemMapFs()
	return NewWithFs(base, "/docs", "/cache"), base
}

func TestWriteReadText(t *testing.T) {
	s, _ := memStore(t)

	if err := s.WriteText(Documents, "vd_mmkv/plugins", `{"a":1}`); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadText(Documents, "vd_mmkv/plugins")
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}

func TestWriteTextOverwrites(t *testing.T) {
	s, _ := memStore(t)
	if err := s.WriteText(Documents, "f", "a much longer first version"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteText(Documents, "f", "short"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ReadText(Documents, "f"); got != "short" {
		t.Fatalf("expected full overwrite, got %q", got)
	}
}

func TestWriteTextLeavesNoTempFiles(t *testing.T) {
	s, base := memStore(t)
	if err := s.WriteText(Documents, "vd_mmkv/x", "{}"); err != nil {
		t.Fatal(err)
	}
	entries, err := afero.ReadDir(base, "/docs/vd_mmkv")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "x" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only x, got %v", names)
	}
}

func TestRootsAreSeparate(t *testing.T) {
	s, base := memStore(t)
	if err := s.WriteText(Cache, "mmkv/x", "cached"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(Documents, "mmkv/x"); ok {
		t.Fatal("cache write visible under documents")
	}
	if ok, _ := afero.Exists(base, "/cache/mmkv/x"); !ok {
		t.Fatal("cache write should land under the cache root")
	}
}

func TestExists(t *testing.T) {
	s, _ := memStore(t)
	ok, err := s.Exists(Documents, "missing")
	if err != nil || ok {
		t.Fatalf("missing: ok=%v err=%v", ok, err)
	}
	if err := s.WriteText(Documents, "present", ""); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Exists(Documents, "present")
	if err != nil || !ok {
		t.Fatalf("present: ok=%v err=%v", ok, err)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s, _ := memStore(t)
	_, err := s.ReadText(Documents, "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	s, _ := memStore(t)
	if err := s.WriteText(Documents, "f", "x"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(Documents, "f"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(Documents, "f"); ok {
		t.Fatal("file should be gone")
	}
	if err := s.Remove(Documents, "f"); !IsNotFound(err) {
		t.Fatalf("second remove: expected not-found, got %v", err)
	}
}

func TestUnknownRoot(t *testing.T) {
	s, _ := memStore(t)
	if _, err := s.Exists(Dir(7), "f"); err == nil {
		t.Fatal("expected error for unknown root")
	}
	if s.Root(Dir(7)) != "" {
		t.Fatal("unknown root should have no path")
	}
	if s.Root(Documents) != "/docs" || s.Root(Cache) != "/cache" {
		t.Fatalf("roots: %q %q", s.Root(Documents), s.Root(Cache))
	}
}

func TestOSFilesystem(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "documents")
	s := New(docs, filepath.Join(dir, "cache"))

	if err := s.WriteText(Documents, "vd_mmkv/x", `{"k":"v"}`); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(docs, "vd_mmkv", "x"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"k":"v"}` {
		t.Fatalf("got %q", data)
	}
}

func TestIsTemp(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"vd_mmkv/x", false},
		{"vd_mmkv/x.tmp-0d9b1f0e-8c5a-4a53-9a7c-1b2d3e4f5a6b", true},
		{"x.tmp-", true},
		{"tmp", false},
	}
	for _, tt := range tests {
		if got := IsTemp(tt.name); got != tt.want {
			t.Errorf("IsTemp(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
