package api

import (
	"time"

	"audioconv/internal/catalog"
	"audioconv/internal/deps"
	"audioconv/internal/preflight"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"download_url"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConversionRecord describes a catalog entry in a transport-friendly format.
type ConversionRecord struct {
	ID              int64   `json:"id"`
	Token           string  `json:"token,omitempty"`
	DownloadURL     string  `json:"downloadUrl,omitempty"`
	OriginalName    string  `json:"originalName"`
	InputFormat     string  `json:"inputFormat"`
	TargetFormat    string  `json:"targetFormat"`
	DRM             bool    `json:"drm"`
	Status          string  `json:"status"`
	ErrorMessage    string  `json:"errorMessage,omitempty"`
	SizeBytes       int64   `json:"sizeBytes"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Title           string  `json:"title,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	DownloadedAt    string  `json:"downloadedAt,omitempty"`
	DownloadCount   int     `json:"downloadCount"`
}

// ConversionListResponse wraps catalog entries.
type ConversionListResponse struct {
	Items []ConversionRecord `json:"items"`
}

// OutputStats summarizes the catalog.
type OutputStats struct {
	Converted      int   `json:"converted"`
	Failed         int   `json:"failed"`
	TotalBytes     int64 `json:"totalBytes"`
	TotalDownloads int   `json:"totalDownloads"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult reports a directory readiness check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ServiceStatus aggregates runtime information for operators.
type ServiceStatus struct {
	Bind           string             `json:"bind"`
	UploadDir      string             `json:"uploadDir"`
	CatalogPath    string             `json:"catalogPath"`
	LockFilePath   string             `json:"lockFilePath"`
	MaxUploadBytes int64              `json:"maxUploadBytes"`
	DefaultFormat  string             `json:"defaultFormat"`
	Formats        []string           `json:"formats"`
	Dependencies   []DependencyStatus `json:"dependencies"`
	Directories    []CheckResult      `json:"directories"`
	Outputs        *OutputStats       `json:"outputs,omitempty"`
}

// FromRecord converts a catalog row.
func FromRecord(rec *catalog.Record) ConversionRecord {
	if rec == nil {
		return ConversionRecord{}
	}
	dto := ConversionRecord{
		ID:              rec.ID,
		Token:           rec.Token,
		OriginalName:    rec.OriginalName,
		InputFormat:     rec.InputFormat,
		TargetFormat:    rec.TargetFormat,
		DRM:             rec.DRM,
		Status:          string(rec.Status),
		ErrorMessage:    rec.ErrorMessage,
		SizeBytes:       rec.SizeBytes,
		DurationSeconds: rec.DurationSeconds,
		Title:           rec.Title,
		CreatedAt:       formatTime(rec.CreatedAt),
		DownloadCount:   rec.DownloadCount,
	}
	if rec.Token != "" {
		dto.DownloadURL = DownloadURL(rec.Token)
	}
	if rec.DownloadedAt != nil {
		dto.DownloadedAt = formatTime(*rec.DownloadedAt)
	}
	return dto
}

// FromRecords converts a slice of catalog rows.
func FromRecords(recs []*catalog.Record) []ConversionRecord {
	out := make([]ConversionRecord, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromChecks converts directory readiness checks.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
