// Package server exposes the conversion service over HTTP.
//
// Routes:
//   - GET  /                       upload page
//   - POST /upload                 multipart upload (file, format, activation_bytes)
//   - GET  /download/{filename}    converted file as an attachment
//   - GET  /healthz                liveness probe
//   - GET  /api/status             dependency and directory report
//   - GET  /api/conversions        catalog listing, filterable by ?status=
//
// Every response carries permissive CORS headers and an X-Request-ID. Run
// holds an exclusive lock on the state directory so two servers never share
// one upload directory.
package server
