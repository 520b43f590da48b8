package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultServerURL is the backend used when neither the config file nor the
// environment names one.
const DefaultServerURL = "http://localhost:8001"

// Config represents the main configuration for docdisk.
type Config struct {
	ServerURL     string             `toml:"server_url"`
	BaseDir       string             `toml:"base_dir"`
	LogDir        string             `toml:"log_dir"`
	HTTP          HTTPConfig         `toml:"http"`
	Notifications NotificationConfig `toml:"notifications"`
	Storage       StorageConfig      `toml:"storage"`
	Encryption    EncryptionConfig   `toml:"encryption"`
}

// HTTPConfig holds settings for the backend client.
type HTTPConfig struct {
	Timeout Duration `toml:"timeout"`
}

// NotificationConfig holds settings for transient messages.
type NotificationConfig struct {
	DismissAfter Duration `toml:"dismiss_after"`
}

// StorageConfig represents configuration for the local credential store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "sqlite" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// SQLite-specific fields (only used when Type == "sqlite")
	DBPath string `toml:"db_path,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`
}

// EncryptionConfig selects how the credential is protected at rest.
type EncryptionConfig struct {
	Type         string `toml:"type"` // "age" (default), "test" or "none"
	IdentityPath string `toml:"identity_path,omitempty"`
}

// Duration is a time.Duration that reads and writes as a string such as "5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig creates a new Config with default values rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		ServerURL:     DefaultServerURL,
		BaseDir:       baseDir,
		LogDir:        filepath.Join(baseDir, "log"),
		HTTP:          HTTPConfig{Timeout: Duration{30 * time.Second}},
		Notifications: NotificationConfig{DismissAfter: Duration{5 * time.Second}},
		Storage: StorageConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "storage"),
		},
		Encryption: EncryptionConfig{
			Type:         "age",
			IdentityPath: filepath.Join(baseDir, "keys", "docdisk.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// ApplyDefaults fills zero values that a hand-written config may leave out.
func (c *Config) ApplyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.HTTP.Timeout.Duration <= 0 {
		c.HTTP.Timeout = Duration{30 * time.Second}
	}
	if c.Notifications.DismissAfter.Duration <= 0 {
		c.Notifications.DismissAfter = Duration{5 * time.Second}
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "filesystem"
	}
	if c.Storage.Type == "filesystem" && c.Storage.Dir == "" && c.BaseDir != "" {
		c.Storage.Dir = filepath.Join(c.BaseDir, "storage")
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "age"
	}
	if c.Encryption.Type == "age" && c.Encryption.IdentityPath == "" && c.BaseDir != "" {
		c.Encryption.IdentityPath = filepath.Join(c.BaseDir, "keys", "docdisk.key")
	}
}
