package convert

import (
	"path/filepath"
	"strings"
)

// Format is an output container/codec family, named by its file extension.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatOGG  Format = "ogg"
	FormatM4A  Format = "m4a"
	FormatFLAC Format = "flac"
)

// ExtensionAAX is the DRM-protected Audible container. It is accepted as
// input only.
const ExtensionAAX = "aax"

// Bitrate is applied to every lossy encode.
const Bitrate = "192k"

var allowedExtensions = map[string]struct{}{
	"wav":        {},
	"mp3":        {},
	"ogg":        {},
	"m4a":        {},
	"flac":       {},
	ExtensionAAX: {},
}

// AllowedFile reports whether name carries an extension the service accepts.
func AllowedFile(name string) bool {
	if !strings.Contains(name, ".") {
		return false
	}
	_, ok := allowedExtensions[Extension(name)]
	return ok
}

// Extension returns the lowercased text after the last "." in name, or "".
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// IsDRM reports whether path names an AAX file.
func IsDRM(path string) bool {
	return strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), ExtensionAAX)
}

// OutputPath replaces the final extension of input with format.
func OutputPath(input string, format Format) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + string(format)
}

// ParseFormat normalizes a user-supplied format. Blank input yields fallback.
// The result is not checked against the supported set.
func ParseFormat(raw string, fallback Format) Format {
	cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), ".")
	if cleaned == "" {
		return fallback
	}
	return Format(cleaned)
}

// SupportedFormats lists the targets StandardConverter can encode.
func SupportedFormats() []Format {
	return []Format{FormatMP3, FormatWAV, FormatOGG, FormatM4A, FormatFLAC}
}

// encodeArgs returns the ffmpeg codec arguments for a standard conversion.
func encodeArgs(format Format) ([]string, bool) {
	switch format {
	case FormatMP3:
		return []string{"-c:a", "libmp3lame", "-b:a", Bitrate}, true
	case FormatWAV:
		return []string{"-c:a", "pcm_s16le"}, true
	case FormatOGG:
		return []string{"-c:a", "libvorbis", "-b:a", Bitrate}, true
	case FormatM4A:
		return []string{"-c:a", "aac", "-b:a", Bitrate}, true
	case FormatFLAC:
		return []string{"-c:a", "flac"}, true
	default:
		return nil, false
	}
}
