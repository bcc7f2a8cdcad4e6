package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

type env struct {
	docs, cache, db string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	return env{
		docs:  filepath.Join(dir, "documents"),
		cache: filepath.Join(dir, "cache"),
		db:    filepath.Join(dir, "mmkv.db"),
	}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--documents-dir", e.docs,
		"--cache-dir", e.cache,
		"--legacy-db", e.db,
		"--log-level", "error",
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("vdstore %v: %v", args, err)
	}
	return out
}

func TestGetCreatesDefault(t *testing.T) {
	e := newEnv(t)
	if out := e.mustRun(t, "get", "foo/bar"); strings.TrimSpace(out) != "{}" {
		t.Fatalf("get: %q", out)
	}
}

func TestSetThenGet(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "set", "plugins", `{"enabled":true}`)
	out := e.mustRun(t, "get", "plugins")
	if !strings.Contains(out, `"enabled": true`) {
		t.Fatalf("get: %q", out)
	}
}

func TestSetRejectsInvalidJSON(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "set", "plugins", "not-json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLegacyMigrationFlow(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "legacy", "put", "x", `{"a":1}`)
	e.mustRun(t, "legacy", "put", "y", `{"b":2}`)

	if out := e.mustRun(t, "legacy", "list"); out != "x\ny\n" {
		t.Fatalf("legacy list: %q", out)
	}
	if out := e.mustRun(t, "migrate", "--all"); out != "x\ny\n" {
		t.Fatalf("migrate --all: %q", out)
	}
	if out := e.mustRun(t, "legacy", "list"); out != "" {
		t.Fatalf("legacy list after migrate: %q", out)
	}
	if out := e.mustRun(t, "get", "x"); !strings.Contains(out, `"a": 1`) {
		t.Fatalf("get x: %q", out)
	}
}

func TestMigrateArgs(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "migrate"); err == nil {
		t.Fatal("migrate without stores or --all should fail")
	}
	if _, err := e.run(t, "migrate", "--all", "x"); err == nil {
		t.Fatal("migrate with stores and --all should fail")
	}
	if out := e.mustRun(t, "migrate", "b", "a"); out != "a\nb\n" {
		t.Fatalf("migrate a b: %q", out)
	}
}

func TestPurge(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "purge", "nothing-here")

	e.mustRun(t, "set", "x", `{"v":1}`)
	e.mustRun(t, "purge", "x")
	if out := e.mustRun(t, "get", "x"); strings.TrimSpace(out) != "{}" {
		t.Fatalf("get after purge: %q", out)
	}
}

func TestNoLegacy(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "--no-legacy", "get", "x")
	if _, err := e.run(t, "--no-legacy", "legacy", "list"); err == nil {
		t.Fatal("legacy list should fail with the engine disabled")
	}
}
