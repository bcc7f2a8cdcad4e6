package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Legacy  LegacyConfig  `toml:"legacy"`
	Logging LoggingConfig `toml:"log"`
}

// StorageConfig holds the two well-known roots of the filesystem capability.
type StorageConfig struct {
	DocumentsDir string `toml:"documents_dir"`
	CacheDir     string `toml:"cache_dir"`
}

// LegacyConfig points at the embedded key-value database stores are
// migrated away from. Disabled means the platform never had one.
type LegacyConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Bucket  string `toml:"bucket"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Environment overrides applied by ApplyEnv.
const (
	EnvDocumentsDir = "VDSTORE_DOCUMENTS_DIR"
	EnvCacheDir     = "VDSTORE_CACHE_DIR"
	EnvLegacyPath   = "VDSTORE_LEGACY_PATH"
	EnvLogLevel     = "VDSTORE_LOG_LEVEL"
)

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			DocumentsDir: "~/.vdstore/documents",
			CacheDir:     "~/.vdstore/cache",
		},
		Legacy: LegacyConfig{
			Enabled: true,
			Path:    "~/.vdstore/mmkv.db",
			Bucket:  "mmkv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file and returns the parsed Config.
// If path is empty, ~/.vdstore/config.toml is used when it exists,
// otherwise only defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = expandHome("~/.vdstore/config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overwriting variables that are already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from VDSTORE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDocumentsDir); v != "" {
		c.Storage.DocumentsDir = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Storage.CacheDir = v
	}
	if v := os.Getenv(EnvLegacyPath); v != "" {
		c.Legacy.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// ExpandPaths resolves a leading ~/ in every configured path.
func (c *Config) ExpandPaths() {
	c.Storage.DocumentsDir = expandHome(c.Storage.DocumentsDir)
	c.Storage.CacheDir = expandHome(c.Storage.CacheDir)
	c.Legacy.Path = expandHome(c.Legacy.Path)
}

// Validate checks the config and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Storage.DocumentsDir) == "" {
		errs = append(errs, errors.New("storage.documents_dir: must not be empty"))
	}
	if strings.TrimSpace(c.Storage.CacheDir) == "" {
		errs = append(errs, errors.New("storage.cache_dir: must not be empty"))
	}
	if c.Legacy.Enabled {
		if strings.TrimSpace(c.Legacy.Path) == "" {
			errs = append(errs, errors.New("legacy.path: required when legacy.enabled is set"))
		}
		if strings.TrimSpace(c.Legacy.Bucket) == "" {
			errs = append(errs, errors.New("legacy.bucket: required when legacy.enabled is set"))
		}
	}
	if err := validateLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := validateLogFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}

	return errors.Join(errs...)
}

func validateLogLevel(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q", s)
}

func validateLogFormat(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q", s)
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
