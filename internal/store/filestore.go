package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"packcam/internal/config"
	"packcam/internal/fileutil"
	"packcam/internal/services"
)

const (
	configFileName    = "config.json"
	sessionsFileName  = "sessions.json"
	operatorsFileName = "operators.json"
	storeLockFileName = "store.lock"
)

// FileStore is the flat-file fallback backend: a config object, a session
// array, and an operator roster file, each replaced atomically on write. A
// file lock serializes mutation across processes (daemon and CLI).
type FileStore struct {
	dir  string
	lock *flock.Flock
}

// OpenFile opens the flat-file store rooted at the data directory.
func OpenFile(cfg *config.Config) (*FileStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dir := cfg.Paths.DataDir
	return &FileStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, storeLockFileName)),
	}, nil
}

// Backend identifies this implementation.
func (s *FileStore) Backend() string { return "file" }

// Close releases the file lock if held.
func (s *FileStore) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *FileStore) withLock(op string, fn func() error) error {
	if err := s.lock.Lock(); err != nil {
		return services.Wrap(services.ErrPersistence, "store", op, "acquire lock", err)
	}
	defer s.lock.Unlock() //nolint:errcheck
	return fn()
}

// GetConfig returns the stored configuration, or defaults when the config
// file does not exist yet.
func (s *FileStore) GetConfig(ctx context.Context) (Config, error) {
	cfg := DefaultConfig()
	err := s.withLock("get config", func() error {
		return s.readJSON(configFileName, &cfg)
	})
	if err != nil {
		return Config{}, err
	}
	return cfg, ctx.Err()
}

// SetConfig replaces the config file and upserts the operator roster entry.
func (s *FileStore) SetConfig(ctx context.Context, cfg Config) error {
	return s.withLock("set config", func() error {
		if err := s.writeJSON(configFileName, cfg); err != nil {
			return err
		}
		if name := normalizeName(cfg.OperatorName); name != "" {
			return s.upsertOperatorLocked(name)
		}
		return nil
	})
}

// LogSession appends one session to the session array.
func (s *FileStore) LogSession(ctx context.Context, session Session) error {
	return s.withLock("log session", func() error {
		var sessions []Session
		if err := s.readJSON(sessionsFileName, &sessions); err != nil {
			return err
		}
		session.ID = int64(len(sessions)) + 1
		sessions = append(sessions, session)
		return s.writeJSON(sessionsFileName, sessions)
	})
}

// Sessions returns all logged sessions in insertion order.
func (s *FileStore) Sessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	err := s.withLock("list sessions", func() error {
		return s.readJSON(sessionsFileName, &sessions)
	})
	if err != nil {
		return nil, err
	}
	return sessions, ctx.Err()
}

// Users returns the merged, collated roster. Names observed only in session
// history are included so a roster entry survives an unmigrated roster file.
func (s *FileStore) Users(ctx context.Context) ([]string, error) {
	var (
		roster   []Operator
		sessions []Session
	)
	err := s.withLock("list users", func() error {
		if err := s.readJSON(operatorsFileName, &roster); err != nil {
			return err
		}
		return s.readJSON(sessionsFileName, &sessions)
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roster))
	for _, op := range roster {
		names = append(names, op.Name)
	}
	return mergeUserNames(names, sessions), nil
}

// AddUser inserts a roster entry; adding an existing name is a no-op.
func (s *FileStore) AddUser(ctx context.Context, name string) error {
	name = normalizeName(name)
	if name == "" {
		return services.Wrap(services.ErrPersistence, "store", "add user", "empty name", nil)
	}
	return s.withLock("add user", func() error {
		return s.upsertOperatorLocked(name)
	})
}

// RenameUser updates the roster entry and rewrites historical session
// attribution to the new name.
func (s *FileStore) RenameUser(ctx context.Context, oldName, newName string) error {
	oldName = normalizeName(oldName)
	newName = normalizeName(newName)
	if oldName == "" || newName == "" {
		return services.Wrap(services.ErrPersistence, "store", "rename user", "empty name", nil)
	}
	return s.withLock("rename user", func() error {
		var roster []Operator
		if err := s.readJSON(operatorsFileName, &roster); err != nil {
			return err
		}
		for i := range roster {
			if sameName(roster[i].Name, oldName) {
				roster[i].Name = newName
			}
		}
		if err := s.writeJSON(operatorsFileName, roster); err != nil {
			return err
		}

		var sessions []Session
		if err := s.readJSON(sessionsFileName, &sessions); err != nil {
			return err
		}
		changed := false
		for i := range sessions {
			if sameName(sessions[i].Employee, oldName) {
				sessions[i].Employee = newName
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return s.writeJSON(sessionsFileName, sessions)
	})
}

// DeleteUser removes the roster entry. Session history keeps the name.
func (s *FileStore) DeleteUser(ctx context.Context, name string) error {
	name = normalizeName(name)
	if name == "" {
		return services.Wrap(services.ErrPersistence, "store", "delete user", "empty name", nil)
	}
	return s.withLock("delete user", func() error {
		var roster []Operator
		if err := s.readJSON(operatorsFileName, &roster); err != nil {
			return err
		}
		kept := roster[:0]
		for _, op := range roster {
			if !sameName(op.Name, name) {
				kept = append(kept, op)
			}
		}
		return s.writeJSON(operatorsFileName, kept)
	})
}

func (s *FileStore) upsertOperatorLocked(name string) error {
	var roster []Operator
	if err := s.readJSON(operatorsFileName, &roster); err != nil {
		return err
	}
	for _, op := range roster {
		if sameName(op.Name, name) {
			return nil
		}
	}
	roster = append(roster, Operator{Name: name, CreatedAt: time.Now().UTC()})
	return s.writeJSON(operatorsFileName, roster)
}

func (s *FileStore) readJSON(name string, target any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrPersistence, "store", "read "+name, "", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "parse "+name, "", err)
	}
	return nil
}

func (s *FileStore) writeJSON(name string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "marshal "+name, "", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "write "+name, "", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
