package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"audioconv/internal/config"
	"audioconv/internal/testsupport"
)

const stubFFmpeg = `for last; do :; done
case "$last" in
  *.mp3|*.wav|*.ogg|*.m4a|*.flac) printf 'converted audio' > "$last" ;;
esac
`

const stubFFprobe = `echo '{"streams":[{"index":0,"codec_type":"audio","codec_name":"pcm_s16le"}],"format":{"duration":"3.0"}}'
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(stubFFmpeg, stubFFprobe))
	t.Setenv("HOME", testsupport.BaseDir(cfg))
	t.Setenv("AUDIOCONV_UPLOAD_DIR", "")
	t.Setenv("AUDIOCONV_BIND", "")
	t.Setenv("FFMPEG_BINARY", "")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "audioconv.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
