package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/metrics"
)

const defaultRedisPrefix = "wayfarer:itinerary:"

// RedisStore keeps each document under <prefix><id> and indexes ids in a
// sorted set scored by last write time.
type RedisStore struct {
	client *backend.Client
	prefix string
	log    *logging.Logger
}

// OpenRedis connects using a redis:// or rediss:// URL.
func OpenRedis(ctx context.Context, url string, log *logging.Logger) (*RedisStore, error) {
	opts, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := backend.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s := NewRedisFromClient(client, log)
	s.log.Info().Str("addr", opts.Addr).Msg("redis itinerary store ready")
	return s, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, log *logging.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: defaultRedisPrefix, log: log.Sub("store")}
}

func (s *RedisStore) key(conversationID string) string { return s.prefix + conversationID }

func (s *RedisStore) indexKey() string { return s.prefix + "index" }

// Backend implements ItineraryStore.
func (s *RedisStore) Backend() string { return "redis" }

// Read implements ItineraryStore.
func (s *RedisStore) Read(ctx context.Context, conversationID string) (string, error) {
	if err := checkID(conversationID); err != nil {
		return "", err
	}
	val, err := s.client.Get(ctx, s.key(conversationID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", domain.NewNotFound(conversationID)
		}
		return "", fmt.Errorf("reading itinerary from redis: %w", err)
	}
	return val, nil
}

// Write implements ItineraryStore. The document and its index entry are
// written in one MULTI/EXEC.
func (s *RedisStore) Write(ctx context.Context, conversationID, doc string) (string, error) {
	if err := checkID(conversationID); err != nil {
		return "", err
	}
	if err := validate(doc); err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(conversationID), doc, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: conversationID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("writing itinerary to redis: %w", err)
	}

	metrics.ItineraryWrites.WithLabelValues(s.Backend()).Inc()
	s.log.Debug().Str("conversation", conversationID).Int("bytes", len(doc)).Msg("itinerary written")
	return doc, nil
}

// List returns stored conversation ids, most recently written last.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing itineraries: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
