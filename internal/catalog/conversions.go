package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const recordColumns = "id, token, upload_name, upload_path, original_name, input_format, target_format, drm, output_path, status, error_message, size_bytes, duration_seconds, title, created_at, downloaded_at, download_count"

// RecordConverted stores a successful conversion. Token must be set.
func (s *Store) RecordConverted(ctx context.Context, rec Record) (*Record, error) {
	if strings.TrimSpace(rec.Token) == "" {
		return nil, errors.New("record converted: empty token")
	}
	rec.Status = StatusConverted
	rec.ErrorMessage = ""
	return s.insert(ctx, rec)
}

// RecordFailed stores a conversion that did not produce a download.
func (s *Store) RecordFailed(ctx context.Context, rec Record, cause error) (*Record, error) {
	rec.Status = StatusFailed
	rec.Token = ""
	rec.OutputPath = ""
	if cause != nil {
		rec.ErrorMessage = cause.Error()
	}
	return s.insert(ctx, rec)
}

func (s *Store) insert(ctx context.Context, rec Record) (*Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO conversions (
            token, upload_name, upload_path, original_name, input_format, target_format,
            drm, output_path, status, error_message, size_bytes, duration_seconds, title, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(rec.Token),
		rec.UploadName,
		rec.UploadPath,
		rec.OriginalName,
		rec.InputFormat,
		rec.TargetFormat,
		boolToInt(rec.DRM),
		nullableString(rec.OutputPath),
		string(rec.Status),
		nullableString(rec.ErrorMessage),
		rec.SizeBytes,
		rec.DurationSeconds,
		nullableString(rec.Title),
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getByID(ctx, id)
}

// MarkDownloaded bumps the download counter for token. Tokens the catalog
// does not know about are ignored and report false.
func (s *Store) MarkDownloaded(ctx context.Context, token string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE conversions SET downloaded_at = ?, download_count = download_count + 1 WHERE token = ?`,
		formatTime(time.Now()), token,
	)
	if err != nil {
		return false, fmt.Errorf("mark downloaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GetByToken returns the record published under token, or nil when none exists.
func (s *Store) GetByToken(ctx context.Context, token string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM conversions WHERE token = ?`, token)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by token: %w", err)
	}
	return rec, nil
}

func (s *Store) getByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM conversions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("get conversion %d: %w", id, err)
	}
	return rec, nil
}

// List returns records newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM conversions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats aggregates the ledger.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `SELECT
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN size_bytes ELSE 0 END), 0),
            COALESCE(SUM(download_count), 0)
        FROM conversions`,
		string(StatusConverted), string(StatusFailed), string(StatusConverted),
	).Scan(&stats.Converted, &stats.Failed, &stats.TotalBytes, &stats.TotalDownloads)
	if err != nil {
		return Stats{}, fmt.Errorf("conversion stats: %w", err)
	}
	return stats, nil
}

// PruneOlderThan removes the files of records created before cutoff and then
// deletes those rows. Converted records give up their output; failed records
// give up the upload left behind. A row whose file cannot be removed is kept
// so a later prune can retry it.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time, remove func(path string) error) (PruneResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM conversions WHERE created_at < ? ORDER BY id`,
		formatTime(cutoff),
	)
	if err != nil {
		return PruneResult{}, fmt.Errorf("select prunable: %w", err)
	}
	var candidates []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return PruneResult{}, fmt.Errorf("scan prunable: %w", err)
		}
		candidates = append(candidates, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return PruneResult{}, fmt.Errorf("iterate prunable: %w", err)
	}

	var result PruneResult
	for _, rec := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := rec.OutputPath
		if rec.Status == StatusFailed {
			path = rec.UploadPath
		}
		if path != "" && remove != nil {
			if err := remove(path); err != nil {
				result.Failures++
				result.LastFailure = err
				continue
			}
		}
		if _, err := s.execWithRetry(ctx, `DELETE FROM conversions WHERE id = ?`, rec.ID); err != nil {
			return result, fmt.Errorf("delete conversion %d: %w", rec.ID, err)
		}
		result.Removed++
		if rec.Status == StatusConverted {
			result.BytesFreed += rec.SizeBytes
		}
	}
	return result, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec           Record
		token         sql.NullString
		outputPath    sql.NullString
		status        string
		errorMessage  sql.NullString
		title         sql.NullString
		drm           int64
		createdRaw    string
		downloadedRaw sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&token,
		&rec.UploadName,
		&rec.UploadPath,
		&rec.OriginalName,
		&rec.InputFormat,
		&rec.TargetFormat,
		&drm,
		&outputPath,
		&status,
		&errorMessage,
		&rec.SizeBytes,
		&rec.DurationSeconds,
		&title,
		&createdRaw,
		&downloadedRaw,
		&rec.DownloadCount,
	); err != nil {
		return nil, err
	}
	rec.Token = token.String
	rec.OutputPath = outputPath.String
	rec.Status = Status(status)
	rec.ErrorMessage = errorMessage.String
	rec.Title = title.String
	rec.DRM = drm != 0
	if created, err := time.Parse(timeLayout, createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if downloadedRaw.Valid {
		if downloaded, err := time.Parse(timeLayout, downloadedRaw.String); err == nil {
			rec.DownloadedAt = &downloaded
		}
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
