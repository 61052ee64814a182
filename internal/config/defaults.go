package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultStoreBackend   = "auto"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultNtfyTimeout    = 10
	defaultFFmpegBinary   = "ffmpeg"
	defaultDataSubdir     = "packcam"
	defaultLogSubdir      = "logs"
	defaultConfigHomePath = "~/.local/share/packcam"
)

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Paths: Paths{
			DataDir: dataDir,
			LogDir:  filepath.Join(dataDir, defaultLogSubdir),
		},
		Tools: Tools{
			FFmpegBinary: defaultFFmpegBinary,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			SessionStart:   true,
			SessionStop:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, defaultDataSubdir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigHomePath
	}
	return filepath.Join(home, ".local", "share", defaultDataSubdir)
}
