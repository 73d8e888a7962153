package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingFile          = errors.New("missing file")
	ErrUnsupportedExtension = errors.New("unsupported extension")
	ErrInvalidActivationKey = errors.New("invalid activation key")
	ErrExternalTool         = errors.New("external tool error")
	ErrDecode               = errors.New("decode error")
	ErrEncode               = errors.New("encode error")
	ErrConversionFailed     = errors.New("conversion failed")
	ErrFileNotFound         = errors.New("file not found")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnexpectedIO         = errors.New("unexpected io error")
	ErrConfiguration        = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnexpectedIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExternalToolError reports a non-zero exit from ffmpeg or ffprobe together
// with the diagnostic output the process produced.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

func (e *ExternalToolError) Is(target error) bool { return target == ErrExternalTool }

type messageError struct {
	err     error
	message string
}

func (e *messageError) Error() string { return e.err.Error() }

func (e *messageError) Unwrap() error { return e.err }

// WithMessage attaches a client-facing message to err. Message returns it in
// preference to the marker defaults.
func WithMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return &messageError{err: err, message: message}
}

// HTTPStatus maps a pipeline error to the response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrUnsupportedExtension),
		errors.Is(err, ErrInvalidActivationKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text placed in the JSON error body for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var withMsg *messageError
	if errors.As(err, &withMsg) && withMsg.message != "" {
		return withMsg.message
	}
	switch {
	case errors.Is(err, ErrMissingFile):
		return "No file part"
	case errors.Is(err, ErrUnsupportedExtension):
		return "File type not allowed"
	case errors.Is(err, ErrFileNotFound):
		return "File not found"
	case errors.Is(err, ErrPayloadTooLarge):
		return "File too large"
	case errors.Is(err, ErrInvalidActivationKey):
		return "Invalid activation bytes format"
	default:
		return err.Error()
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
