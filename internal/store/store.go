package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"packcam/internal/config"
	"packcam/internal/logging"
)

// Camera modes selectable in the recording configuration.
const (
	CameraModeLocal  = "local"
	CameraModeRemote = "remote"
)

// DefaultOverlayTemplate is applied when no template has been saved.
const DefaultOverlayTemplate = "{order} | {employee} | {time} | {elapsed}"

// Config is the operational recording configuration. It is a singleton
// record, mutated only by explicit saves and read before each session.
type Config struct {
	SaveDir         string `json:"saveDir"`
	CameraMode      string `json:"cameraMode"`
	RemoteStreamURL string `json:"remoteStreamUrl"`
	OperatorName    string `json:"operatorName"`
	RemoteTranscode bool   `json:"remoteTranscode"`
	ScaleTo1080     bool   `json:"scaleTo1080"`
	OverlayEnabled  bool   `json:"overlayEnabled"`
	OverlayTemplate string `json:"overlayTemplate"`
	LocalDeviceID   string `json:"localDeviceId"`
}

// DefaultConfig returns the configuration used before the first save.
func DefaultConfig() Config {
	return Config{
		CameraMode:      CameraModeLocal,
		OverlayEnabled:  true,
		OverlayTemplate: DefaultOverlayTemplate,
	}
}

// Session is one completed recording. Records are append-only and never
// mutated after logging, except for employee renames via RenameUser.
type Session struct {
	ID         int64     `json:"id,omitempty"`
	Employee   string    `json:"employee"`
	Order      string    `json:"order"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMS int64     `json:"durationMs"`
	FilePath   string    `json:"filePath"`
}

// Operator is a roster entry. Names are unique case-insensitively.
type Operator struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence contract shared by both backends.
type Store interface {
	GetConfig(ctx context.Context) (Config, error)
	SetConfig(ctx context.Context, cfg Config) error

	LogSession(ctx context.Context, session Session) error
	Sessions(ctx context.Context) ([]Session, error)

	Users(ctx context.Context) ([]string, error)
	AddUser(ctx context.Context, name string) error
	RenameUser(ctx context.Context, oldName, newName string) error
	DeleteUser(ctx context.Context, name string) error

	// Backend identifies the selected implementation: "sqlite" or "file".
	Backend() string
	Close() error
}

// Open selects and opens a backend per the deployment configuration. With
// backend "auto" the SQLite store is probed first and the flat-file store is
// selected silently when the probe fails.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	logger = logging.NewComponentLogger(logger, "store")

	switch cfg.Store.Backend {
	case "sqlite":
		return OpenSQLite(cfg)
	case "file":
		return OpenFile(cfg)
	default:
		s, err := OpenSQLite(cfg)
		if err == nil {
			return s, nil
		}
		logger.Debug("sqlite unavailable, using flat-file store", logging.Error(err))
		return OpenFile(cfg)
	}
}

// mergeUserNames combines roster names with employee names seen in session
// history, dedupes case-insensitively keeping the first-seen spelling, and
// sorts with a case-insensitive collator. Both backends rely on this helper
// so their rosters are byte-identical for the same logical state.
func mergeUserNames(roster []string, sessions []Session) []string {
	seen := make(map[string]struct{}, len(roster))
	names := make([]string, 0, len(roster))
	appendName := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	for _, name := range roster {
		appendName(name)
	}
	for _, session := range sessions {
		appendName(session.Employee)
	}

	collator := collate.New(language.Und, collate.IgnoreCase)
	collator.SortStrings(names)
	return names
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

func sameName(a, b string) bool {
	return strings.EqualFold(normalizeName(a), normalizeName(b))
}
