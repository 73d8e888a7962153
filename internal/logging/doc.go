// Package logging builds the slog loggers used by the audioconv server and CLI.
//
// It provides a console handler for humans and a JSON handler for log
// shipping, typed attribute helpers, and WithContext, which tags lines with
// the request id and pipeline stage carried on a context. Warnings and errors
// that an operator may need to act on go through WarnWithContext and
// ErrorWithContext so they always carry event_type and error_hint fields.
package logging
