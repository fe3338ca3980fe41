package store

import (
	"context"
	"fmt"

	"github.com/soyeahso/wayfarer/internal/domain"
)

// ImportResult summarizes a file-to-store migration.
type ImportResult struct {
	Imported []string          `json:"imported"`
	Skipped  map[string]string `json:"skipped,omitempty"` // id -> reason
}

// ImportFiles copies every itinerary_<id>.json document from src into dst,
// upserting by id. Documents that are not valid JSON are skipped and
// reported; they do not stop the import.
func ImportFiles(ctx context.Context, src *FileStore, dst ItineraryStore) (*ImportResult, error) {
	ids, err := src.List()
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Skipped: map[string]string{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		doc, err := src.Read(ctx, id)
		if err != nil {
			res.Skipped[id] = err.Error()
			continue
		}
		if _, err := dst.Write(ctx, id, doc); err != nil {
			if domain.Is(err, domain.ErrInvalidDocument) {
				res.Skipped[id] = err.Error()
				continue
			}
			return res, fmt.Errorf("importing %s: %w", id, err)
		}
		res.Imported = append(res.Imported, id)
	}
	return res, nil
}
