package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gravitrone/msjbox/cli/internal/api"
)

// Environment overrides.
const (
	EnvAPIURL      = "MSJBOX_API_URL"
	EnvRealtimeURL = "MSJBOX_REALTIME_URL"
	EnvBoxID       = "MSJBOX_BOX_ID"
	EnvDownloadDir = "MSJBOX_DOWNLOAD_DIR"
	EnvLogLevel    = "MSJBOX_LOG_LEVEL"
)

// ErrNoBox is returned by RequireBox when no box has been selected.
var ErrNoBox = errors.New("no box selected. run 'msjbox use <box-id>' first.")

// Config holds CLI configuration stored at ~/.msjbox/config.
type Config struct {
	APIURL      string `yaml:"api_url,omitempty"`
	RealtimeURL string `yaml:"realtime_url,omitempty"`
	BoxID       string `yaml:"box_id,omitempty"`
	DownloadDir string `yaml:"download_dir,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`
}

// Dir returns the per-user state directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".msjbox")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config")
}

// LoadFile reads the config file as written by Save. A missing file yields an
// empty config. Returns error if the file is insecure or malformed.
func LoadFile() (*Config, error) {
	path := Path()

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		return nil, fmt.Errorf("config permissions too open: %04o (want 0600)", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config file and applies environment overrides. Variables
// from a .env file in the working directory are loaded first; variables
// already set in the process win.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.APIURL, EnvAPIURL)
	override(&c.RealtimeURL, EnvRealtimeURL)
	override(&c.BoxID, EnvBoxID)
	override(&c.DownloadDir, EnvDownloadDir)
	override(&c.LogLevel, EnvLogLevel)
}

// Save writes the config to disk with secure permissions.
func (c *Config) Save() error {
	path := Path()
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}

// APIBaseURL returns the REST base URL.
func (c *Config) APIBaseURL() string {
	if u := strings.TrimRight(strings.TrimSpace(c.APIURL), "/"); u != "" {
		return u
	}
	return api.DefaultBaseURL
}

// RealtimeEndpoint returns the Socket.IO server URL, derived from the API URL
// unless set explicitly.
func (c *Config) RealtimeEndpoint() string {
	if u := strings.TrimSpace(c.RealtimeURL); u != "" {
		return u
	}
	return c.APIBaseURL()
}

// DownloadPath returns the directory downloads are written to.
func (c *Config) DownloadPath() string {
	if d := strings.TrimSpace(c.DownloadDir); d != "" {
		if strings.HasPrefix(d, "~/") {
			home, _ := os.UserHomeDir()
			return filepath.Join(home, d[2:])
		}
		return d
	}
	return filepath.Join(Dir(), "downloads")
}

// LogPath returns the log file used by the interactive screen.
func (c *Config) LogPath() string {
	return filepath.Join(Dir(), "logs", "msjbox.log")
}

// RequireBox returns the selected box id or ErrNoBox.
func (c *Config) RequireBox() (string, error) {
	id := strings.TrimSpace(c.BoxID)
	if id == "" {
		return "", ErrNoBox
	}
	return id, nil
}
