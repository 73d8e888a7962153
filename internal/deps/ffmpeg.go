package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RequiredEncoders are the ffmpeg encoders the fixed output formats map to.
var RequiredEncoders = []string{"libmp3lame", "pcm_s16le"}

// CheckEncoders asks ffmpeg which encoders it was built with and reports one
// Status per requested encoder. A missing encoder means conversions to the
// matching format will fail at runtime.
func CheckEncoders(ctx context.Context, ffmpegBinary string, encoders ...string) []Status {
	if len(encoders) == 0 {
		encoders = RequiredEncoders
	}
	results := make([]Status, 0, len(encoders))

	output, err := exec.CommandContext(ctx, strings.TrimSpace(ffmpegBinary), "-hide_banner", "-encoders").Output()
	available := map[string]struct{}{}
	if err == nil {
		available = parseEncoders(output)
	}

	for _, name := range encoders {
		status := Status{
			Name:        "Encoder " + name,
			Command:     ffmpegBinary,
			Description: "ffmpeg encoder",
		}
		switch _, ok := available[name]; {
		case err != nil:
			status.Detail = fmt.Sprintf("list encoders: %v", err)
		case !ok:
			status.Detail = fmt.Sprintf("ffmpeg was built without %s", name)
		default:
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// parseEncoders reads `ffmpeg -encoders` output. Capability rows look like
// " A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3)".
func parseEncoders(output []byte) map[string]struct{} {
	found := map[string]struct{}{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		found[fields[1]] = struct{}{}
	}
	return found
}
