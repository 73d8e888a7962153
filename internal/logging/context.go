package logging

import (
	"context"
	"log/slog"

	"audioconv/internal/services"
)

const (
	FieldComponent     = "component"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the kind of event so log queries can filter on it.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	FieldToken  = "token"
	FieldFormat = "format"
	// FieldUpload carries the stored upload name, shared by every line of one conversion.
	FieldUpload = "upload"
)

// ContextFields returns the stage, request id and upload carried by ctx as attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	if upload, ok := services.UploadFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldUpload, upload))
	}
	return fields
}

// WithContext returns logger with ContextFields attached. A nil logger yields a no-op one.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
