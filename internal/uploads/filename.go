package uploads

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FallbackName replaces a filename that sanitizes to nothing.
const FallbackName = "upload"

// SecureFilename reduces an untrusted client filename to a safe basename.
// Accents are decomposed and dropped, path separators become word breaks,
// whitespace runs collapse to "_", anything outside [A-Za-z0-9_.-] is
// removed, and leading or trailing dots and underscores are trimmed.
func SecureFilename(name string) string {
	ascii, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNonASCII))), name)
	if err != nil {
		ascii = name
	}
	ascii = strings.NewReplacer("/", " ", `\`, " ").Replace(ascii)
	cleaned := unsafeFilenameChars.ReplaceAllString(strings.Join(strings.Fields(ascii), "_"), "")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return FallbackName
	}
	return cleaned
}

func isNonASCII(r rune) bool { return r > unicode.MaxASCII }

// storageBase returns the sanitized name used after the uuid prefix. The
// lowercased extension is preserved even when the stem sanitizes away.
func storageBase(original string) (base, ext string) {
	idx := strings.LastIndex(original, ".")
	if idx < 0 {
		return SecureFilename(original), ""
	}
	ext = strings.ToLower(original[idx+1:])
	if ext == "" || unsafeFilenameChars.MatchString(ext) {
		return SecureFilename(original), ""
	}
	return SecureFilename(original[:idx]) + "." + ext, ext
}
