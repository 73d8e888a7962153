package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"audioconv/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory with all
// directories created. Options are applied afterwards.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxUploadMB overrides the upload cap.
func WithMaxUploadMB(mb int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.MaxUploadMB = mb
	}
}

// WithStubbedTools writes ffmpeg and ffprobe scripts into the base dir and
// points the config at them. Empty scripts default to a silent success.
func WithStubbedTools(ffmpegScript, ffprobeScript string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		b.cfg.Conversion.FFmpegBinary = StubBinary(b.t, binDir, "ffmpeg", ffmpegScript)
		b.cfg.Conversion.FFprobeBinary = StubBinary(b.t, binDir, "ffprobe", ffprobeScript)
	}
}

// StubBinary writes an executable shell script named name into dir and
// returns its path. An empty body exits 0.
func StubBinary(t testing.TB, dir, name, body string) string {
	t.Helper()

	if body == "" {
		body = "exit 0\n"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
