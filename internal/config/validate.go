package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

var outputFormats = map[string]struct{}{
	"mp3":  {},
	"wav":  {},
	"ogg":  {},
	"m4a":  {},
	"flac": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	// Anything under the upload directory is downloadable by name, so the
	// catalog and lock file must live elsewhere.
	if within(c.Paths.UploadDir, c.Paths.StateDir) {
		return errors.New("paths.state_dir must not be inside paths.upload_dir")
	}
	if within(c.Paths.UploadDir, c.Paths.LogDir) {
		return errors.New("paths.log_dir must not be inside paths.upload_dir")
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q is not a host:port address: %w", c.Server.Bind, err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateConversion() error {
	if _, ok := outputFormats[c.Conversion.DefaultFormat]; !ok {
		return fmt.Errorf("conversion.default_format %q must be one of mp3, wav, ogg, m4a, flac", c.Conversion.DefaultFormat)
	}
	if c.Conversion.TimeoutSeconds < 0 {
		return errors.New("conversion.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func within(root, candidate string) bool {
	if root == "" || candidate == "" {
		return false
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
