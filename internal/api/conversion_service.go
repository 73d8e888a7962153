package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"audioconv/internal/catalog"
	"audioconv/internal/convert"
	"audioconv/internal/logging"
	"audioconv/internal/media/ffprobe"
	"audioconv/internal/services"
	"audioconv/internal/uploads"
)

// UploadStore abstracts the upload directory.
type UploadStore interface {
	Persist(ctx context.Context, originalName string, r io.Reader) (uploads.UploadedFile, error)
	Resolve(token string) (string, error)
	Remove(path string) error
}

// CatalogWriter records conversion outcomes.
type CatalogWriter interface {
	RecordConverted(ctx context.Context, rec catalog.Record) (*catalog.Record, error)
	RecordFailed(ctx context.Context, rec catalog.Record, cause error) (*catalog.Record, error)
	MarkDownloaded(ctx context.Context, token string) (bool, error)
}

// UploadRequest carries one upload. A nil Body means the request had no file part.
type UploadRequest struct {
	Filename      string
	Body          io.Reader
	Format        string
	ActivationKey string
}

// PublishResult describes a published conversion.
type PublishResult struct {
	Token       string
	DownloadURL string
	OutputPath  string
	Format      convert.Format
	DRM         bool
	SizeBytes   int64
}

// ConversionService runs uploads through conversion and serves the results.
type ConversionService struct {
	store         UploadStore
	converter     convert.Converter
	catalog       CatalogWriter
	probe         func(ctx context.Context, path string) (ffprobe.Result, error)
	defaultFormat convert.Format
	logger        *slog.Logger
}

// ServiceOption customizes a ConversionService.
type ServiceOption func(*ConversionService)

// WithCatalog records every conversion outcome in w.
func WithCatalog(w CatalogWriter) ServiceOption {
	return func(s *ConversionService) {
		if w != nil {
			s.catalog = w
		}
	}
}

// WithOutputProbe inspects each published output for duration and title.
func WithOutputProbe(fn func(ctx context.Context, path string) (ffprobe.Result, error)) ServiceOption {
	return func(s *ConversionService) {
		s.probe = fn
	}
}

// WithDefaultFormat sets the target used when an upload names none.
func WithDefaultFormat(f convert.Format) ServiceOption {
	return func(s *ConversionService) {
		if f != "" {
			s.defaultFormat = f
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *ConversionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewConversionService wires the pipeline around store and converter.
func NewConversionService(store UploadStore, converter convert.Converter, opts ...ServiceOption) *ConversionService {
	s := &ConversionService{
		store:         store,
		converter:     converter,
		defaultFormat: convert.FormatMP3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = logging.NewComponentLogger(s.logger, "conversion")
	return s
}

// DownloadURL returns the path a token is served from.
func DownloadURL(token string) string {
	return "/download/" + url.PathEscape(token)
}

// Publish validates, persists and converts an upload. A rejected filename
// leaves nothing on disk. A failed conversion leaves the persisted upload in
// place and is recorded in the catalog as failed.
func (s *ConversionService) Publish(ctx context.Context, req UploadRequest) (*PublishResult, error) {
	ctx = services.WithStage(ctx, "upload")
	logger := logging.WithContext(ctx, s.logger)

	if req.Body == nil {
		return nil, services.Wrap(services.ErrMissingFile, "upload", "validate", "request has no file part", nil)
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, services.WithMessage(
			services.Wrap(services.ErrMissingFile, "upload", "validate", "empty filename", nil),
			"No selected file",
		)
	}
	if !convert.AllowedFile(req.Filename) {
		logger.Info("upload rejected", logging.String("filename", req.Filename), logging.String("reason", "extension not allowed"))
		return nil, services.Wrap(services.ErrUnsupportedExtension, "upload", "validate", req.Filename, nil)
	}
	format := convert.ParseFormat(req.Format, s.defaultFormat)

	file, err := s.store.Persist(ctx, req.Filename, req.Body)
	if err != nil {
		return nil, err
	}
	ctx = services.WithUpload(ctx, file.StorageName)
	logger = logging.WithContext(ctx, s.logger)
	logger.Debug("upload persisted",
		logging.String("path", file.Path),
		logging.Int64("size_bytes", file.Size),
		logging.String(logging.FieldFormat, string(format)),
	)

	drm := convert.IsDRM(file.Path)
	rec := catalog.Record{
		UploadName:   file.StorageName,
		UploadPath:   file.Path,
		OriginalName: file.OriginalName,
		InputFormat:  file.Extension,
		TargetFormat: string(format),
		DRM:          drm,
	}

	output, err := s.converter.Convert(services.WithStage(ctx, "convert"), convert.Request{
		InputPath:     file.Path,
		Format:        format,
		ActivationKey: req.ActivationKey,
	})
	if err != nil {
		s.recordFailed(ctx, rec, err)
		wrapped := services.Wrap(services.ErrConversionFailed, "upload", "convert", file.StorageName, err)
		if errors.Is(err, services.ErrInvalidActivationKey) {
			return nil, wrapped
		}
		return nil, services.WithMessage(wrapped, "Conversion failed: "+conversionDetail(err))
	}

	token := filepath.Base(output)
	result := &PublishResult{
		Token:       token,
		DownloadURL: DownloadURL(token),
		OutputPath:  output,
		Format:      format,
		DRM:         drm,
	}
	if info, statErr := os.Stat(output); statErr == nil {
		result.SizeBytes = info.Size()
	}
	rec.Token = token
	rec.OutputPath = output
	rec.SizeBytes = result.SizeBytes

	if output != file.Path {
		if err := s.store.Remove(file.Path); err != nil {
			logging.ErrorWithContext(logger, "upload cleanup failed", "upload_cleanup_failed",
				logging.String("path", file.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on upload_dir"),
			)
			wrapped := services.Wrap(services.ErrUnexpectedIO, "upload", "cleanup", file.StorageName, err)
			s.recordFailed(ctx, rec, wrapped)
			return nil, wrapped
		}
	}
	s.recordConverted(ctx, rec)

	logger.Info("conversion published",
		logging.String(logging.FieldToken, token),
		logging.String(logging.FieldFormat, string(format)),
		logging.Bool("drm", drm),
		logging.Int64("size_bytes", result.SizeBytes),
	)
	return result, nil
}

// Open resolves token inside the upload directory and opens the file. Any
// file in the directory is served; the catalog only counts the download.
func (s *ConversionService) Open(ctx context.Context, token string) (*os.File, os.FileInfo, error) {
	ctx = services.WithStage(ctx, "download")
	path, err := s.store.Resolve(token)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, services.Wrap(services.ErrFileNotFound, "download", "open", token, nil)
		}
		return nil, nil, services.Wrap(services.ErrUnexpectedIO, "download", "open", token, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, services.Wrap(services.ErrUnexpectedIO, "download", "stat", token, err)
	}

	if s.catalog != nil {
		if _, err := s.catalog.MarkDownloaded(ctx, token); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "download not counted", "catalog_mark_failed",
				logging.String(logging.FieldToken, token),
				logging.Error(err),
				logging.String(logging.FieldImpact, "download count is understated"),
			)
		}
	}
	return f, info, nil
}

func (s *ConversionService) recordConverted(ctx context.Context, rec catalog.Record) {
	if s.probe != nil {
		if probe, err := s.probe(ctx, rec.OutputPath); err == nil {
			rec.DurationSeconds = probe.DurationSeconds()
			rec.Title = probe.Tag("title")
		} else {
			logging.WithContext(ctx, s.logger).Debug("output probe failed", logging.Error(err))
		}
	}
	if s.catalog == nil {
		return
	}
	if _, err := s.catalog.RecordConverted(ctx, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "conversion not recorded", "catalog_record_failed",
			logging.String(logging.FieldToken, rec.Token),
			logging.Error(err),
			logging.String(logging.FieldImpact, "output will not appear in listings or prune"),
		)
	}
}

func (s *ConversionService) recordFailed(ctx context.Context, rec catalog.Record, cause error) {
	if s.catalog == nil {
		return
	}
	if _, err := s.catalog.RecordFailed(ctx, rec, cause); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed conversion not recorded", "catalog_record_failed",
			logging.String("upload", rec.UploadName),
			logging.Error(err),
			logging.String(logging.FieldImpact, "leftover upload will not be pruned"),
		)
	}
}

// conversionDetail prefers the external tool's own diagnostics.
func conversionDetail(err error) string {
	var toolErr *services.ExternalToolError
	if errors.As(err, &toolErr) {
		return toolErr.Error()
	}
	return err.Error()
}
