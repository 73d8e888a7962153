// Package config loads, normalizes, and validates audioconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AUDIOCONV_UPLOAD_DIR. The Config type centralizes every knob the server and
// CLI need so upload/state directories and ffmpeg settings are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
