package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/metrics"
)

// DefaultDir is used when no itinerary directory is configured.
const DefaultDir = "itineraries"

// FileStore keeps one itinerary_<id>.json file per conversation.
type FileStore struct {
	dir string
	log *logging.Logger
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, log *logging.Logger) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating itinerary directory: %w", err)
	}
	s := &FileStore{dir: dir, log: log.Sub("store")}
	s.log.Info().Str("dir", dir).Msg("file itinerary store ready")
	return s, nil
}

// Dir returns the directory holding the documents.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(conversationID string) string {
	return filepath.Join(s.dir, FileName(conversationID))
}

// FileName is the on-disk name of a conversation's document.
func FileName(conversationID string) string {
	return "itinerary_" + conversationID + ".json"
}

// Backend implements ItineraryStore.
func (s *FileStore) Backend() string { return "file" }

// Read implements ItineraryStore.
func (s *FileStore) Read(_ context.Context, conversationID string) (string, error) {
	if err := checkID(conversationID); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(conversationID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.NewNotFound(conversationID)
		}
		return "", fmt.Errorf("reading itinerary: %w", err)
	}
	return string(data), nil
}

// Write implements ItineraryStore. The document lands via a temp file in
// the same directory and a rename, so readers never see a partial file.
func (s *FileStore) Write(_ context.Context, conversationID, doc string) (string, error) {
	if err := checkID(conversationID); err != nil {
		return "", err
	}
	if err := validate(doc); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, "tmp-"+conversationID+"-*.json")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.WriteString(doc); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(conversationID)); err != nil {
		return "", fmt.Errorf("replacing itinerary: %w", err)
	}

	metrics.ItineraryWrites.WithLabelValues(s.Backend()).Inc()
	s.log.Debug().Str("conversation", conversationID).Int("bytes", len(doc)).Msg("itinerary written")
	return doc, nil
}

// List returns the conversation ids that have a document on disk.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing itineraries: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if id, ok := idFromFileName(e.Name()); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func idFromFileName(name string) (string, bool) {
	const prefix, suffix = "itinerary_", ".json"
	if len(name) <= len(prefix)+len(suffix) || name[:len(prefix)] != prefix || filepath.Ext(name) != suffix {
		return "", false
	}
	return name[len(prefix) : len(name)-len(suffix)], true
}

// Close implements ItineraryStore.
func (s *FileStore) Close() error { return nil }
