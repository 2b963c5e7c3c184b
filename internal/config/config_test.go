package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.User = UserConfig{ID: 7, Name: "Sara"}
	cfg.Feed.Backend = FeedRedis
	cfg.Feed.RedisURL = "redis://localhost:6379/0"
	cfg.Chat.IncludeCounterpartInMeta = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.User.ID != 7 || loaded.User.Name != "Sara" {
		t.Errorf("User = %+v, want {7 Sara}", loaded.User)
	}
	if loaded.Feed.Backend != FeedRedis || loaded.Feed.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("Feed = %+v, want redis backend", loaded.Feed)
	}
	if !loaded.Chat.IncludeCounterpartInMeta {
		t.Error("IncludeCounterpartInMeta = false, want true")
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("default_profile = \"main\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Feed.Backend != FeedSQLite {
		t.Errorf("Feed.Backend = %q, want %q", cfg.Feed.Backend, FeedSQLite)
	}
	if cfg.API.AuthScheme != "Bearer" {
		t.Errorf("API.AuthScheme = %q, want Bearer", cfg.API.AuthScheme)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadWithEnvMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PETO_API_URL", "https://api.example.test/api")
	t.Setenv("PETO_USER_ID", "42")
	t.Setenv("PETO_FEED_BACKEND", FeedPostgres)

	cfg, err := LoadWithEnv("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.test/api" {
		t.Errorf("API.BaseURL = %q, want env override", cfg.API.BaseURL)
	}
	if cfg.User.ID != 42 {
		t.Errorf("User.ID = %d, want 42", cfg.User.ID)
	}
	if cfg.Feed.Backend != FeedPostgres {
		t.Errorf("Feed.Backend = %q, want %q", cfg.Feed.Backend, FeedPostgres)
	}
}

func TestApplyEnvIgnoresBadUserID(t *testing.T) {
	t.Setenv("PETO_USER_ID", "not-a-number")
	cfg := Default()
	cfg.User.ID = 3
	ApplyEnv(cfg)
	if cfg.User.ID != 3 {
		t.Errorf("User.ID = %d, want 3 (unchanged)", cfg.User.ID)
	}
}

func TestValidateRequiresUserID(t *testing.T) {
	for _, id := range []int64{0, -4} {
		cfg := Default()
		cfg.User.ID = id
		if err := cfg.Validate(); !errors.Is(err, ErrMissingUserID) {
			t.Errorf("Validate() with id %d = %v, want ErrMissingUserID", id, err)
		}
	}
	cfg := Default()
	cfg.User.ID = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
