package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"audioconv/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("AUDIOCONV_UPLOAD_DIR", "")
	t.Setenv("AUDIOCONV_BIND", "")
	t.Setenv("FFMPEG_BINARY", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantUploads := filepath.Join(tempHome, ".local", "share", "audioconv", "uploads")
	if cfg.Paths.UploadDir != wantUploads {
		t.Fatalf("unexpected upload dir: got %q want %q", cfg.Paths.UploadDir, wantUploads)
	}
	if cfg.Server.Bind != "127.0.0.1:5002" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.MaxUploadBytes() != 1024*1024*1024 {
		t.Fatalf("unexpected upload cap: %d", cfg.MaxUploadBytes())
	}
	if cfg.Conversion.DefaultFormat != "mp3" {
		t.Fatalf("unexpected default format: %q", cfg.Conversion.DefaultFormat)
	}
	if cfg.ConversionTimeout() != 0 {
		t.Fatalf("expected unbounded conversion timeout by default, got %s", cfg.ConversionTimeout())
	}
	if cfg.OutputMaxAge() != 0 {
		t.Fatalf("expected outputs kept forever by default, got %s", cfg.OutputMaxAge())
	}
	if cfg.CatalogPath() != filepath.Join(cfg.Paths.StateDir, "catalog.db") {
		t.Fatalf("unexpected catalog path: %q", cfg.CatalogPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "audioconv.toml")
	t.Setenv("AUDIOCONV_UPLOAD_DIR", "")
	t.Setenv("AUDIOCONV_BIND", "")
	t.Setenv("FFMPEG_BINARY", "")

	type payload struct {
		Paths struct {
			UploadDir string `toml:"upload_dir"`
			StateDir  string `toml:"state_dir"`
		} `toml:"paths"`
		Server struct {
			Bind        string `toml:"bind"`
			MaxUploadMB int64  `toml:"max_upload_mb"`
		} `toml:"server"`
		Conversion struct {
			DefaultFormat  string `toml:"default_format"`
			TimeoutSeconds int    `toml:"timeout_seconds"`
		} `toml:"conversion"`
	}
	custom := payload{}
	custom.Paths.UploadDir = filepath.Join(tempDir, "uploads")
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Server.Bind = "0.0.0.0:8080"
	custom.Server.MaxUploadMB = 16
	custom.Conversion.DefaultFormat = ".FLAC"
	custom.Conversion.TimeoutSeconds = 90
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.UploadDir != custom.Paths.UploadDir {
		t.Fatalf("expected upload dir from file, got %q", cfg.Paths.UploadDir)
	}
	if cfg.Server.Bind != "0.0.0.0:8080" {
		t.Fatalf("expected bind from file, got %q", cfg.Server.Bind)
	}
	if cfg.MaxUploadBytes() != 16*1024*1024 {
		t.Fatalf("unexpected upload cap: %d", cfg.MaxUploadBytes())
	}
	if cfg.Conversion.DefaultFormat != "flac" {
		t.Fatalf("expected normalized default format, got %q", cfg.Conversion.DefaultFormat)
	}
	if cfg.ConversionTimeout() != 90*time.Second {
		t.Fatalf("unexpected conversion timeout: %s", cfg.ConversionTimeout())
	}
}

func TestEnvOverridesUploadDirAndBind(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("AUDIOCONV_UPLOAD_DIR", filepath.Join(tempDir, "env-uploads"))
	t.Setenv("AUDIOCONV_BIND", "127.0.0.1:9999")
	t.Setenv("FFMPEG_BINARY", "/opt/ffmpeg/bin/ffmpeg")

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.UploadDir != filepath.Join(tempDir, "env-uploads") {
		t.Errorf("expected upload dir from env, got %q", cfg.Paths.UploadDir)
	}
	if cfg.Server.Bind != "127.0.0.1:9999" {
		t.Errorf("expected bind from env, got %q", cfg.Server.Bind)
	}
	if cfg.Conversion.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("expected ffmpeg binary from env, got %q", cfg.Conversion.FFmpegBinary)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "audioconv.toml")
	if err := os.WriteFile(configPath, []byte("[server]\nbitrate = \"320k\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.UploadDir, "audioconv") {
		t.Fatalf("expected upload dir to contain audioconv, got %q", cfg.Paths.UploadDir)
	}
	if cfg.Server.Bind != config.Default().Server.Bind {
		t.Fatalf("sample bind %q differs from default", cfg.Server.Bind)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Conversion.DefaultFormat = "aax"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for aax as an output format")
	}

	cfg = config.Default()
	cfg.Server.Bind = "5002"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bind without host")
	}

	cfg = config.Default()
	cfg.Paths.UploadDir = "/srv/audio"
	cfg.Paths.StateDir = "/srv/audio/state"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when state dir sits inside upload dir")
	}

	cfg = config.Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
