package store_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"packcam/internal/config"
	"packcam/internal/logging"
	"packcam/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}

func openBackends(t *testing.T) map[string]store.Store {
	t.Helper()
	backends := make(map[string]store.Store, 2)

	sqliteStore, err := store.OpenSQLite(testConfig(t))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })
	backends["sqlite"] = sqliteStore

	fileStore, err := store.OpenFile(testConfig(t))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { fileStore.Close() })
	backends["file"] = fileStore

	return backends
}

func TestConfigRoundTrip(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			initial, err := s.GetConfig(ctx)
			if err != nil {
				t.Fatalf("GetConfig before save: %v", err)
			}
			if initial.CameraMode != store.CameraModeLocal || initial.OverlayTemplate == "" {
				t.Fatalf("unexpected defaults: %+v", initial)
			}

			want := store.Config{
				SaveDir:         "/srv/captures",
				CameraMode:      store.CameraModeRemote,
				RemoteStreamURL: "rtsp://cam.local/stream",
				OperatorName:    "J. Doe",
				RemoteTranscode: true,
				ScaleTo1080:     true,
				OverlayEnabled:  true,
				OverlayTemplate: "{order} {time}",
				LocalDeviceID:   "/dev/video0",
			}
			if err := s.SetConfig(ctx, want); err != nil {
				t.Fatalf("SetConfig: %v", err)
			}
			got, err := s.GetConfig(ctx)
			if err != nil {
				t.Fatalf("GetConfig: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestSetConfigUpsertsOperator(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cfg := store.DefaultConfig()
			cfg.OperatorName = "alice"
			if err := s.SetConfig(ctx, cfg); err != nil {
				t.Fatalf("SetConfig: %v", err)
			}
			// Saving again with the same operator stays idempotent.
			if err := s.SetConfig(ctx, cfg); err != nil {
				t.Fatalf("SetConfig repeat: %v", err)
			}
			users, err := s.Users(ctx)
			if err != nil {
				t.Fatalf("Users: %v", err)
			}
			if len(users) != 1 || users[0] != "alice" {
				t.Fatalf("expected [alice], got %v", users)
			}
		})
	}
}

func TestLogSessionAndList(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
			session := store.Session{
				Employee:   "alice",
				Order:      "ABC123",
				Start:      start,
				End:        start.Add(time.Minute),
				DurationMS: 60000,
				FilePath:   "/srv/captures/ABC123__alice__20240305T090000.mp4",
			}
			if err := s.LogSession(ctx, session); err != nil {
				t.Fatalf("LogSession: %v", err)
			}

			sessions, err := s.Sessions(ctx)
			if err != nil {
				t.Fatalf("Sessions: %v", err)
			}
			if len(sessions) != 1 {
				t.Fatalf("expected 1 session, got %d", len(sessions))
			}
			got := sessions[0]
			if got.Order != "ABC123" || got.Employee != "alice" || got.DurationMS != 60000 {
				t.Fatalf("unexpected session %+v", got)
			}
			if !got.Start.Equal(start) {
				t.Fatalf("start mismatch: %v", got.Start)
			}
		})
	}
}

func TestRenameUserRewritesHistoryDeleteDoesNot(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.AddUser(ctx, "alice"); err != nil {
				t.Fatalf("AddUser: %v", err)
			}
			start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
			for _, order := range []string{"A1X", "B2Y"} {
				if err := s.LogSession(ctx, store.Session{
					Employee: "alice", Order: order,
					Start: start, End: start.Add(time.Minute), DurationMS: 60000,
					FilePath: "/tmp/" + order + ".mp4",
				}); err != nil {
					t.Fatalf("LogSession: %v", err)
				}
			}

			if err := s.RenameUser(ctx, "alice", "alicia"); err != nil {
				t.Fatalf("RenameUser: %v", err)
			}
			sessions, err := s.Sessions(ctx)
			if err != nil {
				t.Fatalf("Sessions: %v", err)
			}
			for _, session := range sessions {
				if session.Employee != "alicia" {
					t.Fatalf("expected rename to rewrite history, got %+v", session)
				}
			}

			if err := s.DeleteUser(ctx, "alicia"); err != nil {
				t.Fatalf("DeleteUser: %v", err)
			}
			sessions, err = s.Sessions(ctx)
			if err != nil {
				t.Fatalf("Sessions after delete: %v", err)
			}
			for _, session := range sessions {
				if session.Employee != "alicia" {
					t.Fatalf("delete must not rewrite history, got %+v", session)
				}
			}
		})
	}
}

func TestUsersMergesSessionEmployees(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.AddUser(ctx, "Bob"); err != nil {
				t.Fatalf("AddUser: %v", err)
			}
			// Operator present only in session history, never in the roster.
			start := time.Now().UTC()
			if err := s.LogSession(ctx, store.Session{
				Employee: "carol", Order: "Z9Q",
				Start: start, End: start.Add(time.Second), DurationMS: 1000,
				FilePath: "/tmp/z.mp4",
			}); err != nil {
				t.Fatalf("LogSession: %v", err)
			}

			users, err := s.Users(ctx)
			if err != nil {
				t.Fatalf("Users: %v", err)
			}
			if !reflect.DeepEqual(users, []string{"Bob", "carol"}) {
				t.Fatalf("expected merged sorted roster, got %v", users)
			}
		})
	}
}

func TestAddUserIsCaseInsensitivelyIdempotent(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, variant := range []string{"Dana", "dana", "DANA"} {
				if err := s.AddUser(ctx, variant); err != nil {
					t.Fatalf("AddUser(%q): %v", variant, err)
				}
			}
			users, err := s.Users(ctx)
			if err != nil {
				t.Fatalf("Users: %v", err)
			}
			if len(users) != 1 || users[0] != "Dana" {
				t.Fatalf("expected single Dana entry, got %v", users)
			}
		})
	}
}

func TestOpenAutoFallsBackToFileStore(t *testing.T) {
	cfg := testConfig(t)
	// Occupy the database path with a directory so the SQLite probe fails.
	if err := os.MkdirAll(cfg.DatabasePath(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	s, err := store.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if s.Backend() != "file" {
		t.Fatalf("expected file fallback, got %q", s.Backend())
	}
}

func TestOpenExplicitBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "sqlite"
	s, err := store.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	if s.Backend() != "sqlite" {
		t.Fatalf("expected sqlite, got %q", s.Backend())
	}
	s.Close()

	cfg2 := testConfig(t)
	cfg2.Store.Backend = "file"
	s2, err := store.Open(cfg2, logging.NewNop())
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	defer s2.Close()
	if s2.Backend() != "file" {
		t.Fatalf("expected file, got %q", s2.Backend())
	}
}
