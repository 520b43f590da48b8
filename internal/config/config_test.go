package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ServerURL:     "https://docs.example.com",
		BaseDir:       "/home/user/.local/share/docdisk",
		LogDir:        "/home/user/.local/share/docdisk/log",
		HTTP:          HTTPConfig{Timeout: Duration{10 * time.Second}},
		Notifications: NotificationConfig{DismissAfter: Duration{3 * time.Second}},
		Storage: StorageConfig{
			Type:       "s3",
			S3Bucket:   "creds",
			S3Prefix:   "laptop/",
			S3Region:   "auto",
			S3Endpoint: "https://r2.example.com",
		},
		Encryption: EncryptionConfig{
			Type:         "age",
			IdentityPath: "/home/user/.local/share/docdisk/keys/docdisk.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.ServerURL != original.ServerURL {
		t.Errorf("ServerURL = %q, want %q", got.ServerURL, original.ServerURL)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.HTTP.Timeout.Duration != 10*time.Second {
		t.Errorf("HTTP.Timeout = %v, want %v", got.HTTP.Timeout, 10*time.Second)
	}
	if got.Notifications.DismissAfter.Duration != 3*time.Second {
		t.Errorf("Notifications.DismissAfter = %v, want %v", got.Notifications.DismissAfter, 3*time.Second)
	}
	if got.Storage != original.Storage {
		t.Errorf("Storage = %+v, want %+v", got.Storage, original.Storage)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
}

func TestManager_Read(t *testing.T) {
	t.Run("reads durations as strings", func(t *testing.T) {
		input := `
server_url = "http://localhost:9000"

[http]
timeout = "1m30s"

[storage]
type = "sqlite"
db_path = "/tmp/docdisk.db"
`
		m := &Manager{}
		cfg, err := m.Read(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if cfg.HTTP.Timeout.Duration != 90*time.Second {
			t.Errorf("HTTP.Timeout = %v, want 1m30s", cfg.HTTP.Timeout)
		}
		if cfg.Storage.Type != "sqlite" || cfg.Storage.DBPath != "/tmp/docdisk.db" {
			t.Errorf("Storage = %+v, want sqlite at /tmp/docdisk.db", cfg.Storage)
		}
	})

	t.Run("rejects malformed duration", func(t *testing.T) {
		m := &Manager{}
		_, err := m.Read(strings.NewReader("[http]\ntimeout = \"soon\"\n"))
		if err == nil {
			t.Fatal("Read() expected error for malformed duration")
		}
	})
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/docdisk")

	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, DefaultServerURL)
	}
	if cfg.BaseDir != "/data/docdisk" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/docdisk")
	}
	if cfg.LogDir != "/data/docdisk/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/docdisk/log")
	}
	if cfg.Notifications.DismissAfter.Duration != 5*time.Second {
		t.Errorf("Notifications.DismissAfter = %v, want 5s", cfg.Notifications.DismissAfter)
	}
	if cfg.Storage.Type != "filesystem" || cfg.Storage.Dir != "/data/docdisk/storage" {
		t.Errorf("Storage = %+v, want filesystem under base dir", cfg.Storage)
	}
	if cfg.Encryption.IdentityPath != "/data/docdisk/keys/docdisk.key" {
		t.Errorf("Encryption.IdentityPath = %q, want %q", cfg.Encryption.IdentityPath, "/data/docdisk/keys/docdisk.key")
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{BaseDir: "/data/docdisk", Encryption: EncryptionConfig{Type: "none"}}
	cfg.ApplyDefaults()

	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, DefaultServerURL)
	}
	if cfg.HTTP.Timeout.Duration != 30*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 30s", cfg.HTTP.Timeout)
	}
	if cfg.Storage.Dir != "/data/docdisk/storage" {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, "/data/docdisk/storage")
	}
	if cfg.Encryption.Type != "none" || cfg.Encryption.IdentityPath != "" {
		t.Errorf("Encryption = %+v, want none without identity", cfg.Encryption)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "docdisk.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "docdisk.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "docdisk.toml")
		cfg := NewConfig(dir)
		cfg.ServerURL = "http://read-test:8001"
		cfg.Storage = StorageConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.ServerURL != "http://read-test:8001" {
			t.Errorf("ServerURL = %q, want %q", got.ServerURL, "http://read-test:8001")
		}
		if got.Storage.Type != "memory" {
			t.Errorf("Storage.Type = %q, want %q", got.Storage.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/docdisk.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
