package vfs

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stackb/noir-stage/pkg/testutil"
)

func mustDialHost(t *testing.T, store PrimaryStore) *HostStore {
	t.Helper()
	srv := httptest.NewServer(ServeHost(store, testutil.NewTestLogger(t)))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	host, err := DialHostStore(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { host.Close() })
	return host
}

func TestHostStore(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStoreFromMap(map[string]string{
		"src/main.nr": "mod foo;\n",
	})
	host := mustDialHost(t, backing)

	ok, err := host.Exists(ctx, "src/main.nr")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
	ok, err = host.Exists(ctx, "src/foo.nr")
	if err != nil || ok {
		t.Fatalf("exists missing: %v %v", ok, err)
	}

	got, err := host.ReadFile(ctx, "src/main.nr")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "mod foo;\n" {
		t.Errorf("read: got %q", got)
	}

	if err := host.WriteFile(ctx, "Nargo.toml", []byte("[package]\n")); err != nil {
		t.Fatal(err)
	}
	if got, _ := backing.ReadFile(ctx, "Nargo.toml"); string(got) != "[package]\n" {
		t.Errorf("write not forwarded: %q", got)
	}
}

func TestHostStoreCallError(t *testing.T) {
	host := mustDialHost(t, NewMemoryStore())

	_, err := host.ReadFile(context.Background(), "missing.nr")
	var callErr *HostCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("want *HostCallError, got %T %v", err, err)
	}
	if callErr.Method != "readFile" {
		t.Errorf("method: got %s", callErr.Method)
	}
	if !strings.Contains(callErr.Message, "file does not exist") {
		t.Errorf("message: got %s", callErr.Message)
	}
}

func TestServeHostRequestUnknown(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	resp := serveHostRequest(ctx, store, hostRequest{ID: 7, Plugin: "terminal", Method: "exists"})
	if resp.ID != 7 || resp.Error != `unknown plugin "terminal"` {
		t.Errorf("unexpected response %+v", resp)
	}
	resp = serveHostRequest(ctx, store, hostRequest{ID: 8, Plugin: HostPlugin, Method: "remove"})
	if resp.Error != `unknown method "remove"` {
		t.Errorf("unexpected response %+v", resp)
	}
}
