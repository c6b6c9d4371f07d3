package vfs

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStoreFromMap(map[string]string{
		"src/main.nr":    "mod foo;\n",
		"/src/foo.nr":    "fn foo() {}\n",
		"src/lib/bar.nr": "fn bar() {}\n",
		"srcfile.nr":     "",
	})

	if got := s.Len(); got != 4 {
		t.Errorf("len: want 4, got %d", got)
	}

	for name, want := range map[string]bool{
		"src/foo.nr":  true,
		"/src/foo.nr": true,
		"src/baz.nr":  false,
		"src":         false,
		"srcfile.nr":  true,
	} {
		got, err := s.Exists(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("exists %s: want %v, got %v", name, want, got)
		}
	}

	if _, err := s.ReadFile(ctx, "missing.nr"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("read missing: want fs.ErrNotExist, got %v", err)
	}
	if _, err := s.Exists(ctx, " "); err == nil {
		t.Error("blank name should be rejected")
	}

	if diff := cmp.Diff([]string{"src/foo.nr", "src/lib/bar.nr", "src/main.nr"}, s.List("src")); diff != "" {
		t.Errorf("list (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreWriteCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("fn main() {}\n")
	if err := s.WriteFile(ctx, "main.nr", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'X'

	got, err := s.ReadFile(ctx, "main.nr")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fn main() {}\n" {
		t.Errorf("store should not alias caller buffer, got %q", got)
	}

	if err := s.WriteFile(ctx, "main.nr", []byte("fn main() { 1 }\n")); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("overwrite should not grow the store, len=%d", s.Len())
	}
	if diff := cmp.Diff(map[string]string{"main.nr": "fn main() { 1 }\n"}, s.Files()); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreWalk(t *testing.T) {
	s := NewMemoryStoreFromMap(map[string]string{
		"b.nr":       "b",
		"a/c.nr":     "c",
		"Nargo.toml": "[package]",
	})

	var got []string
	if err := s.Walk(context.Background(), func(name string, data []byte) error {
		got = append(got, name+"="+string(data))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	want := []string{"Nargo.toml=[package]", "a/c.nr=c", "b.nr=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk (-want +got):\n%s", diff)
	}
}
