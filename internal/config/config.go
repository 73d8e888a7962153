package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Server contains HTTP listener settings.
type Server struct {
	Bind                     string `toml:"bind"`
	MaxUploadMB              int64  `toml:"max_upload_mb"`
	ReadHeaderTimeoutSeconds int    `toml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `toml:"shutdown_timeout_seconds"`
}

// Conversion contains settings for the external audio engine.
type Conversion struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	DefaultFormat string `toml:"default_format"`
	// TimeoutSeconds bounds a single ffmpeg/ffprobe invocation. Zero means the
	// call blocks until the process exits.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Retention contains the operator-driven pruning threshold for published outputs.
type Retention struct {
	OutputMaxAgeHours int `toml:"output_max_age_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for audioconv.
//
// Configuration sections by subsystem:
//   - Paths: upload, state (catalog + lock), and log directories
//   - Server: bind address, upload size cap, HTTP timeouts
//   - Conversion: ffmpeg/ffprobe binaries, default target format, call timeout
//   - Retention: age threshold used by `audioconv outputs prune`
//   - Logging: log format, level, and retention
//
// A loaded Config is treated as immutable and is passed explicitly to the
// components that need it.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Server     Server     `toml:"server"`
	Conversion Conversion `toml:"conversion"`
	Retention  Retention  `toml:"retention"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audioconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the upload, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB * 1024 * 1024
}

// ConversionTimeout returns the per-invocation timeout; zero means unbounded.
func (c *Config) ConversionTimeout() time.Duration {
	if c.Conversion.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Conversion.TimeoutSeconds) * time.Second
}

// ShutdownTimeout returns how long the server waits for in-flight requests on shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// ReadHeaderTimeout returns the HTTP read-header timeout.
func (c *Config) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.Server.ReadHeaderTimeoutSeconds) * time.Second
}

// OutputMaxAge returns the retention threshold for published outputs; zero keeps them forever.
func (c *Config) OutputMaxAge() time.Duration {
	if c.Retention.OutputMaxAgeHours <= 0 {
		return 0
	}
	return time.Duration(c.Retention.OutputMaxAgeHours) * time.Hour
}

// CatalogPath returns the SQLite database path for the output catalog.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.db")
}

// LockPath returns the lock file guarding single-server ownership of the upload directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "audioconv.lock")
}

// LogFilePath returns the primary log file path.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "audioconv.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
