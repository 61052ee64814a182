package daemon

import (
	"context"
	"strings"
	"testing"
	"time"

	"packcam/internal/logging"
	"packcam/internal/notifications"
	"packcam/internal/session"
	"packcam/internal/store"
	"packcam/internal/testsupport"
	"packcam/internal/transcode"
)

func newDaemon(t *testing.T) *Daemon {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStoreBackend("file"))
	st := testsupport.MustOpenStore(t, cfg)

	runtimeCfg := store.DefaultConfig()
	runtimeCfg.SaveDir = t.TempDir()
	if err := st.SetConfig(context.Background(), runtimeCfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	transcoder := transcode.NewSupervisor(cfg.FFmpegBinary(), logging.NewNop())
	controller := session.NewController(st, transcoder, notifications.NewNoop(), cfg.FFmpegBinary(), logging.NewNop())

	d, err := New(cfg, st, controller, transcoder, notifications.NewNoop(), strings.NewReader(""), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	d := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("daemon should report running")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestSecondStartWhileRunningFails(t *testing.T) {
	d := newDaemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestInstanceLockBlocksSecondDaemon(t *testing.T) {
	d := newDaemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	second, err := New(d.cfg, d.store, d.controller, d.transcoder, notifications.NewNoop(), nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
	d.Stop()
}

func TestStatusReflectsIdleSession(t *testing.T) {
	d := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	// The empty input reader ends immediately; give the loop a moment.
	time.Sleep(20 * time.Millisecond)

	status := d.Status()
	if status.Session.State != session.StateIdle {
		t.Fatalf("session state = %q, want idle", status.Session.State)
	}
	if status.StoreBackend != "file" {
		t.Fatalf("store backend = %q, want file", status.StoreBackend)
	}
	if status.ActiveJobs != 0 {
		t.Fatalf("active jobs = %d, want 0", status.ActiveJobs)
	}
}
