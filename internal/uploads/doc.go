// Package uploads owns the flat upload directory: it sanitizes client
// filenames, persists upload bodies under collision-free names and resolves
// download tokens back to files without letting a token escape the
// directory.
package uploads
