// Package api holds the transport-agnostic conversion service and the wire
// types the HTTP server and CLI share.
//
// # Services
//
// ConversionService runs the upload pipeline: validate the client filename,
// persist the body, dispatch the conversion, remove the consumed upload, and
// publish a download token. It also resolves tokens back to open files for
// downloads. OutputsService is a read-only view over the catalog.
//
// # Design Notes
//
// The upload and error payloads keep the snake_case keys browsers of the
// upload page already expect ("success", "download_url", "error"). Listing
// and status DTOs use camelCase like the rest of the JSON API. Timestamps are
// RFC3339 with milliseconds.
package api
