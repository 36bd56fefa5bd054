package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"timetable/internal/blob"
	"timetable/internal/config"
	"timetable/internal/core"
)

func memoryConfig() config.Config {
	return config.Config{
		HTTP:      config.HTTPConfig{Addr: ":0", ShutdownTimeout: time.Second},
		Storage:   core.StorageConfig{Driver: core.StorageMemory},
		Blob:      blob.Config{Driver: blob.DriverMemory},
		Export:    config.ExportConfig{QueueSize: 4},
		Collation: "ko",
		LogLevel:  "debug",
	}
}

func TestNewServerWiresComponents(t *testing.T) {
	var logs bytes.Buffer
	srv, err := newServer(context.Background(), memoryConfig(), &logs)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app, ok := srv.app.(*fiber.App)
	if !ok {
		t.Fatalf("expected fiber app, got %T", srv.app)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/teachers", strings.NewReader(`{"name":"Kang"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	for path, want := range map[string]string{
		"/health":     `"ok"`,
		"/metrics":    "timetable_operations_total",
		"/debug/vars": "timetable_service_metrics_",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Fatalf("GET %s: expected %q, got %d", path, want, resp.StatusCode)
		}
	}
	if !strings.Contains(logs.String(), `"msg":"audit"`) || !strings.Contains(logs.String(), `"operation":"add_teacher"`) {
		t.Fatalf("expected audit entry in structured log, got %s", logs.String())
	}
	if err := srv.worker.Stop(context.Background()); err != nil {
		t.Fatalf("stop worker: %v", err)
	}
}

type fakeApp struct {
	listenErr error
	stopped   chan struct{}
	shutdowns int
}

func (a *fakeApp) Listen(string) error {
	if a.listenErr != nil {
		return a.listenErr
	}
	<-a.stopped
	return nil
}

func (a *fakeApp) ShutdownWithContext(context.Context) error {
	a.shutdowns++
	if a.shutdowns == 1 {
		close(a.stopped)
	}
	return nil
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv, err := newServer(context.Background(), memoryConfig(), io.Discard)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app := &fakeApp{stopped: make(chan struct{})}
	srv.app = app

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.serve(ctx); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if app.shutdowns != 1 {
		t.Fatalf("expected one shutdown, got %d", app.shutdowns)
	}
}

func TestServeReportsListenError(t *testing.T) {
	srv, err := newServer(context.Background(), memoryConfig(), io.Discard)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv.app = &fakeApp{listenErr: errors.New("address in use"), stopped: make(chan struct{})}
	err = srv.serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv("TIMETABLE_STORAGE_DRIVER", "bogus")
	if err := run(context.Background(), io.Discard, config.WithDotEnv()); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestNewServerSQLiteStorage(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage = core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: t.TempDir() + "/timetable.db"}
	cfg.Blob = blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()}
	srv, err := newServer(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if srv.closer == nil {
		t.Fatalf("expected sqlite sink to be closed on shutdown")
	}
	srv.app = &fakeApp{stopped: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.serve(ctx); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestNewServerRestoresStoredExports(t *testing.T) {
	cfg := memoryConfig()
	cfg.Blob = blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()}
	store, err := blob.Open(context.Background(), cfg.Blob)
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	_, err = store.Put(context.Background(), "exports/kept.hwpx", strings.NewReader("doc"), blob.PutOptions{
		ContentType: "application/hwpx",
		Metadata:    map[string]string{"export_id": "kept", "format": "hwpx"},
	})
	if err != nil {
		t.Fatalf("put artifact: %v", err)
	}

	srv, err := newServer(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	record, ok := srv.worker.GetExport("kept")
	if !ok || record.Key != "exports/kept.hwpx" || record.SizeBytes != 3 {
		t.Fatalf("expected stored export to be restored, got %+v (found=%v)", record, ok)
	}
}
