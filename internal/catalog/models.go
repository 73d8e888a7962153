package catalog

import "time"

// Status is the outcome of a conversion attempt.
type Status string

const (
	StatusConverted Status = "converted"
	StatusFailed    Status = "failed"
)

// Record is one row of the conversions ledger.
type Record struct {
	ID              int64
	Token           string
	UploadName      string
	UploadPath      string
	OriginalName    string
	InputFormat     string
	TargetFormat    string
	DRM             bool
	OutputPath      string
	Status          Status
	ErrorMessage    string
	SizeBytes       int64
	DurationSeconds float64
	Title           string
	CreatedAt       time.Time
	DownloadedAt    *time.Time
	DownloadCount   int
}

// Stats summarizes the ledger.
type Stats struct {
	Converted      int
	Failed         int
	TotalBytes     int64
	TotalDownloads int
}

// PruneResult reports the outcome of PruneOlderThan.
type PruneResult struct {
	Removed     int
	BytesFreed  int64
	Failures    int
	LastFailure error
}
