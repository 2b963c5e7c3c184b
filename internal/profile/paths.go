package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.peto.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".peto")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the UDS socket path the daemon listens on.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "petod.sock")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// FeedDBPath returns the embedded feed store path.
func FeedDBPath(name string) string {
	return filepath.Join(Dir(name), "feed.db")
}

// TokenPath returns the file holding the backend access token.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "token")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "petod.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with owner-only permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
