package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"audioconv/internal/config"
	"audioconv/internal/deps"
)

// CheckDirectoryAccess requires path to be an existing directory the process
// can list, read and write. Passing results report the free space left on
// its filesystem.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(format string, args ...any) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, fmt.Sprintf(format, args...))}
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fail("does not exist")
	case err != nil:
		return fail("stat: %v", err)
	case !info.IsDir():
		return fail("is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("insufficient permissions: %v", err)
	}

	detail := fmt.Sprintf("%s (read/write ok)", path)
	if free, ok := freeBytes(path); ok {
		detail = fmt.Sprintf("%s (read/write ok, %s free)", path, humanize.IBytes(free))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func freeBytes(path string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, false
	}
	return st.Bavail * uint64(st.Bsize), true
}

// CheckSystemDeps reports the ffmpeg/ffprobe binaries and, when ffmpeg is
// present, the encoders the output formats need.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries(deps.ConversionRequirements(cfg.Conversion.FFmpegBinary, cfg.Conversion.FFprobeBinary))
	if len(statuses) == 0 || !statuses[0].Available {
		return statuses
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return append(statuses, deps.CheckEncoders(checkCtx, statuses[0].Command)...)
}
