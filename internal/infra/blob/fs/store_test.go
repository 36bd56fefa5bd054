package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timetable/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStorePutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "exports/a.xlsx", strings.NewReader("hello"), core.PutOptions{
		ContentType: "application/octet-stream",
		Metadata:    map[string]string{"format": "xlsx"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "exports/a.xlsx" || info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "exports/a.xlsx", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	head, err := store.Head(ctx, "exports/a.xlsx")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	got, rc, err := store.Get(ctx, "exports/a.xlsx")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(body) != "hello" || got.ETag != head.ETag || got.Metadata["format"] != "xlsx" {
		t.Fatalf("unexpected get result %+v %q", got, body)
	}

	if _, err := store.Put(ctx, "exports/b.docx", strings.NewReader("doc"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if _, err := store.Put(ctx, "other/c.txt", strings.NewReader("c"), core.PutOptions{}); err != nil {
		t.Fatalf("put third: %v", err)
	}
	list, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "exports/a.xlsx" || list[1].Key != "exports/b.docx" {
		t.Fatalf("unexpected list %+v", list)
	}

	deleted, err := store.Delete(ctx, "exports/a.xlsx")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "exports/a.xlsx")
	if err != nil || deleted {
		t.Fatalf("second delete should report missing: %v %v", deleted, err)
	}
	if _, _, err := store.Get(ctx, "exports/a.xlsx"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Head(ctx, "exports/a.xlsx"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"", "../escape", "/abs", "exports/x.meta"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
	if _, err := store.Delete(ctx, "../escape"); err == nil {
		t.Fatalf("expected delete error for invalid key")
	}
}

func TestStorePresignURL(t *testing.T) {
	store := newTempStore(t)
	url, err := store.PresignURL(context.Background(), "exports/a.hwpx", core.SignedURLOptions{})
	if err != nil || url != "http://local.blob/exports/a.hwpx" {
		t.Fatalf("unexpected url %q %v", url, err)
	}
	if _, err := store.PresignURL(context.Background(), "exports/a.hwpx", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestStoreCorruptMetadata(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "exports/a.xlsx", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "exports", "a.xlsx.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := store.Head(ctx, "exports/a.xlsx"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("expected list to surface decode error")
	}
}

func TestNewDefaultsRootAndCancelledPut(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Root() != DefaultRoot || store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected defaults %q %s", store.Root(), store.Driver())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "exports/a", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
