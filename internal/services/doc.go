// Package services defines shared utilities consumed by the conversion
// pipeline, the HTTP surface, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp request identifiers and pipeline stage names
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent HTTP statuses and client-facing messages.
//   - ExternalToolError, which carries the diagnostic output of a failed
//     ffmpeg/ffprobe invocation up to the response body.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform across transports.
package services
