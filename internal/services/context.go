package services

import "context"

type contextKey int

const (
	stageKey contextKey = iota
	requestIDKey
	uploadKey
)

// WithStage tags ctx with the pipeline step in progress (upload, convert,
// download). Blank names leave ctx untouched.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithRequestID tags ctx with the X-Request-ID of the HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}

// WithUpload tags ctx with the stored name of the upload being processed so
// every log line of one conversion can be grouped.
func WithUpload(ctx context.Context, storageName string) context.Context {
	return withString(ctx, uploadKey, storageName)
}

func UploadFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, uploadKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
