package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"audioconv/internal/logging"
	"audioconv/internal/services"
)

// UploadedFile describes a persisted upload.
type UploadedFile struct {
	OriginalName string
	Extension    string
	StorageName  string
	Path         string
	Size         int64
}

// Store persists uploads into a single flat directory.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates root if needed and returns a store rooted there.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "uploads", "open store", "upload directory not configured", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "uploads", "resolve root", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "uploads", "create root", abs, err)
	}
	return &Store{root: abs, logger: logging.NewComponentLogger(logger, "uploads")}, nil
}

// Root returns the absolute upload directory.
func (s *Store) Root() string { return s.root }

// Persist streams r into "<uuid>_<sanitized name>" inside the root. The file
// is created exclusively, so concurrent uploads with the same client name
// never share a path. A partial file is removed when the copy fails.
func (s *Store) Persist(ctx context.Context, originalName string, r io.Reader) (UploadedFile, error) {
	base, ext := storageBase(originalName)
	name := uuid.NewString() + "_" + base
	path := filepath.Join(s.root, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return UploadedFile{}, services.Wrap(services.ErrUnexpectedIO, "persist", "create upload", name, err)
	}

	size, copyErr := io.Copy(file, contextReader{ctx: ctx, r: r})
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "partial upload not removed", "upload_partial_remains",
				logging.String("path", path),
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "truncated file remains in upload directory"),
			)
		}
		return UploadedFile{}, services.Wrap(services.ErrUnexpectedIO, "persist", "write upload", name, copyErr)
	}

	return UploadedFile{
		OriginalName: originalName,
		Extension:    ext,
		StorageName:  name,
		Path:         path,
		Size:         size,
	}, nil
}

// Resolve maps a download token to a regular file directly inside the root.
// Tokens containing path elements, and anything that is not a regular file,
// report ErrFileNotFound.
func (s *Store) Resolve(token string) (string, error) {
	if token == "" || token == "." || token == ".." || token != filepath.Base(token) || strings.ContainsAny(token, `/\`) {
		return "", services.Wrap(services.ErrFileNotFound, "download", "resolve", "invalid token", nil)
	}
	path := filepath.Join(s.root, token)
	if !s.contains(path) {
		return "", services.Wrap(services.ErrFileNotFound, "download", "resolve", "outside upload directory", nil)
	}
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrFileNotFound, "download", "resolve", token, nil)
		}
		return "", services.Wrap(services.ErrUnexpectedIO, "download", "stat", token, err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrFileNotFound, "download", "resolve", fmt.Sprintf("%s is not a regular file", token), nil)
	}
	return path, nil
}

// Remove deletes a file that lives inside the root. A file that is already
// gone is not an error.
func (s *Store) Remove(path string) error {
	if !s.contains(path) {
		return services.Wrap(services.ErrUnexpectedIO, "cleanup", "remove", fmt.Sprintf("%s is outside the upload directory", path), nil)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrUnexpectedIO, "cleanup", "remove", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
