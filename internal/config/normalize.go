package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeConversion()
	c.normalizeLogging()
	if c.Retention.OutputMaxAgeHours < 0 {
		c.Retention.OutputMaxAgeHours = 0
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("AUDIOCONV_UPLOAD_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.UploadDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("AUDIOCONV_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = defaultReadHeaderTimeout
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeout
	}
}

func (c *Config) normalizeConversion() {
	if value, ok := os.LookupEnv("FFMPEG_BINARY"); ok && strings.TrimSpace(value) != "" {
		c.Conversion.FFmpegBinary = value
	}
	c.Conversion.FFmpegBinary = strings.TrimSpace(c.Conversion.FFmpegBinary)
	if c.Conversion.FFmpegBinary == "" {
		c.Conversion.FFmpegBinary = defaultFFmpegBinary
	}
	c.Conversion.FFprobeBinary = strings.TrimSpace(c.Conversion.FFprobeBinary)
	if c.Conversion.FFprobeBinary == "" {
		c.Conversion.FFprobeBinary = defaultFFprobeBinary
	}
	c.Conversion.DefaultFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Conversion.DefaultFormat)), ".")
	if c.Conversion.DefaultFormat == "" {
		c.Conversion.DefaultFormat = defaultFormat
	}
	if c.Conversion.TimeoutSeconds < 0 {
		c.Conversion.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
