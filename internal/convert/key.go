package convert

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"audioconv/internal/services"
)

const activationKeyLength = 8

// CleanActivationKey strips dashes and spaces from raw and lowercases it.
// The cleaned key must be exactly eight hex digits.
func CleanActivationKey(raw string) (string, error) {
	cleaned := strings.ToLower(strings.NewReplacer("-", "", " ", "").Replace(raw))
	if n := utf8.RuneCountInString(cleaned); n != activationKeyLength || len(cleaned) != activationKeyLength {
		return "", invalidKey(fmt.Sprintf("expected %d hex digits, got %d characters", activationKeyLength, n))
	}
	if _, err := hex.DecodeString(cleaned); err != nil {
		return "", invalidKey("expected hex digits only")
	}
	return cleaned, nil
}

func invalidKey(detail string) error {
	return services.Wrap(services.ErrInvalidActivationKey, "convert", "clean activation key", detail, nil)
}

// redactArgs copies args with the value following -activation_bytes masked.
func redactArgs(args []string) []string {
	out := append([]string(nil), args...)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-activation_bytes" {
			out[i+1] = "********"
		}
	}
	return out
}
