package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"packcam/internal/config"
	"packcam/internal/services"
)

// SQLiteStore is the relational persistence backend.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes or connects to the session database and applies
// the schema. A ping verifies the driver is actually usable so that "auto"
// backend selection can fall back cleanly.
func OpenSQLite(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Backend identifies this implementation.
func (s *SQLiteStore) Backend() string { return "sqlite" }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetConfig returns the stored configuration, or defaults when no save has
// happened yet.
func (s *SQLiteStore) GetConfig(ctx context.Context) (Config, error) {
	var payload string
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM config WHERE id = 1`)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultConfig(), nil
		}
		return Config{}, services.Wrap(services.ErrPersistence, "store", "get config", "", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return Config{}, services.Wrap(services.ErrPersistence, "store", "get config", "corrupt payload", err)
	}
	return cfg, nil
}

// SetConfig stores the configuration and upserts the operator name into the
// roster when one is set.
func (s *SQLiteStore) SetConfig(ctx context.Context, cfg Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "set config", "marshal", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "set config", "begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO config (id, payload) VALUES (1, ?)
         ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		string(payload),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "set config", "", err)
	}

	if name := normalizeName(cfg.OperatorName); name != "" {
		if err := insertOperator(ctx, tx, name); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "set config", "commit", err)
	}
	return nil
}

// LogSession appends one completed session to the log.
func (s *SQLiteStore) LogSession(ctx context.Context, session Session) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (employee, order_code, started_at, ended_at, duration_ms, file_path)
         VALUES (?, ?, ?, ?, ?, ?)`,
		session.Employee,
		session.Order,
		session.Start.UTC().Format(time.RFC3339Nano),
		session.End.UTC().Format(time.RFC3339Nano),
		session.DurationMS,
		session.FilePath,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "log session", "", err)
	}
	return nil
}

// Sessions returns all logged sessions in insertion order.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, employee, order_code, started_at, ended_at, duration_ms, file_path
         FROM sessions ORDER BY id`,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "list sessions", "", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			session    Session
			startedRaw string
			endedRaw   string
		)
		if err := rows.Scan(&session.ID, &session.Employee, &session.Order, &startedRaw, &endedRaw, &session.DurationMS, &session.FilePath); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "store", "scan session", "", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			session.Start = parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, endedRaw); err == nil {
			session.End = parsed
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Users returns the merged, collated roster.
func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM operators`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "list users", "", err)
	}
	defer rows.Close()

	var roster []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "store", "scan user", "", err)
		}
		roster = append(roster, name)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "list users", "", err)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return mergeUserNames(roster, sessions), nil
}

// AddUser inserts a roster entry; adding an existing name is a no-op.
func (s *SQLiteStore) AddUser(ctx context.Context, name string) error {
	name = normalizeName(name)
	if name == "" {
		return services.Wrap(services.ErrPersistence, "store", "add user", "empty name", nil)
	}
	if err := insertOperator(ctx, s.db, name); err != nil {
		return err
	}
	return nil
}

// RenameUser updates the roster entry and rewrites historical session
// attribution to the new name.
func (s *SQLiteStore) RenameUser(ctx context.Context, oldName, newName string) error {
	oldName = normalizeName(oldName)
	newName = normalizeName(newName)
	if oldName == "" || newName == "" {
		return services.Wrap(services.ErrPersistence, "store", "rename user", "empty name", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "rename user", "begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE operators SET name = ? WHERE name = ?`, newName, oldName); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "rename user", "", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET employee = ? WHERE employee = ? COLLATE NOCASE`, newName, oldName); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "rename user", "rewrite sessions", err)
	}

	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "rename user", "commit", err)
	}
	return nil
}

// DeleteUser removes the roster entry. Session history keeps the name.
func (s *SQLiteStore) DeleteUser(ctx context.Context, name string) error {
	name = normalizeName(name)
	if name == "" {
		return services.Wrap(services.ErrPersistence, "store", "delete user", "empty name", nil)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM operators WHERE name = ?`, name); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "delete user", "", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertOperator(ctx context.Context, db execer, name string) error {
	_, err := db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO operators (name, created_at) VALUES (?, ?)`,
		name,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "upsert operator", "", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
