// Package store persists itinerary documents keyed by conversation id.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
)

// ItineraryStore reads and upserts whole itinerary documents. Every
// backend behaves the same way from the caller's side.
type ItineraryStore interface {
	// Read returns the stored document text, or a NotFound error.
	Read(ctx context.Context, conversationID string) (string, error)
	// Write validates doc as JSON and replaces the stored document.
	Write(ctx context.Context, conversationID, doc string) (string, error)
	// Backend names the storage kind for logs and metrics.
	Backend() string
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// DatabaseURL picks a database backend when set: postgres://,
	// redis:// or a sqlite path. Empty means file storage.
	DatabaseURL string
	// Dir is the file backend's directory.
	Dir string
}

// Open returns the backend selected by opts.
func Open(ctx context.Context, opts Options, log *logging.Logger) (ItineraryStore, error) {
	dsn := strings.TrimSpace(opts.DatabaseURL)
	switch {
	case dsn == "":
		return NewFileStore(opts.Dir, log)
	case hasScheme(dsn, "postgres", "postgresql"):
		return OpenSQL(ctx, Postgres, dsn, log)
	case hasScheme(dsn, "redis", "rediss"):
		return OpenRedis(ctx, dsn, log)
	default:
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "file:")
		return OpenSQL(ctx, SQLite, path, log)
	}
}

func hasScheme(dsn string, schemes ...string) bool {
	lower := strings.ToLower(dsn)
	for _, s := range schemes {
		if strings.HasPrefix(lower, s+"://") {
			return true
		}
	}
	return false
}

// validate rejects text that is not a single well-formed JSON value.
func validate(doc string) error {
	if !json.Valid([]byte(doc)) {
		var v any
		err := json.Unmarshal([]byte(doc), &v)
		return domain.NewInvalidDocument("not well-formed JSON", err)
	}
	return nil
}

func checkID(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}
	if strings.ContainsAny(conversationID, `/\`) || strings.Contains(conversationID, "..") {
		return fmt.Errorf("invalid conversation id %q", conversationID)
	}
	return nil
}
