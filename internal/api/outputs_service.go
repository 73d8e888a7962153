package api

import (
	"context"

	"audioconv/internal/catalog"
)

// CatalogReader abstracts the catalog queries needed for listings.
type CatalogReader interface {
	List(ctx context.Context, statuses ...catalog.Status) ([]*catalog.Record, error)
	Stats(ctx context.Context) (catalog.Stats, error)
}

// OutputsService exposes read-only catalog operations returning API DTOs.
type OutputsService struct {
	store CatalogReader
}

// NewOutputsService constructs an OutputsService around the provided reader.
func NewOutputsService(store CatalogReader) *OutputsService {
	if store == nil {
		return nil
	}
	return &OutputsService{store: store}
}

// List returns catalog entries filtered by status, newest first.
func (s *OutputsService) List(ctx context.Context, statuses ...catalog.Status) ([]ConversionRecord, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	recs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs), nil
}

// Stats summarizes the catalog.
func (s *OutputsService) Stats(ctx context.Context) (*OutputStats, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &OutputStats{
		Converted:      stats.Converted,
		Failed:         stats.Failed,
		TotalBytes:     stats.TotalBytes,
		TotalDownloads: stats.TotalDownloads,
	}, nil
}
