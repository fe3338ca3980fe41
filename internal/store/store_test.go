package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
)

const sampleDoc = `{
  "destination": "Paris",
  "description": "Long weekend",
  "start_date": "2025-06-01",
  "end_date": "2025-06-02",
  "duration_days": 2,
  "itinerary": [
    {"date": "2025-06-01", "day_number": 1, "location": "Paris", "activities": ["Louvre"], "transportation": "Metro", "accommodation": [], "notes": ""},
    {"date": "2025-06-02", "day_number": 2, "location": "Paris", "activities": [], "transportation": "None", "accommodation": {"results": [{"hotelId": 7}]}, "notes": ""}
  ]
}`

func quietLog() *logging.Logger { return logging.New(nil, "silent") }

func testSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQL(context.Background(), SQLite, ":memory:", quietLog())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := NewRedisFromClient(client, quietLog())
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func testFile(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), quietLog())
	require.NoError(t, err)
	return s
}

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, s ItineraryStore) {
	ctx := context.Background()

	t.Run("read missing", func(t *testing.T) {
		_, err := s.Read(ctx, "nope")
		require.Error(t, err)
		assert.True(t, domain.Is(err, domain.ErrNotFound))
		assert.Equal(t, "No itinerary found for conversation ID: nope", err.Error())
	})

	t.Run("write then read", func(t *testing.T) {
		out, err := s.Write(ctx, "c1", sampleDoc)
		require.NoError(t, err)
		assert.Equal(t, sampleDoc, out)

		got, err := s.Read(ctx, "c1")
		require.NoError(t, err)
		assert.JSONEq(t, sampleDoc, got)
	})

	t.Run("upsert replaces whole document", func(t *testing.T) {
		_, err := s.Write(ctx, "c2", `{"a": 1, "b": 2}`)
		require.NoError(t, err)
		_, err = s.Write(ctx, "c2", `{"a": 3}`)
		require.NoError(t, err)

		got, err := s.Read(ctx, "c2")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a": 3}`, got)
	})

	t.Run("invalid JSON rejected without side effect", func(t *testing.T) {
		_, err := s.Write(ctx, "c3", `{"a": `)
		require.Error(t, err)
		assert.True(t, domain.Is(err, domain.ErrInvalidDocument))

		_, err = s.Read(ctx, "c3")
		assert.True(t, domain.Is(err, domain.ErrNotFound))

		_, err = s.Write(ctx, "c1", "not json")
		require.Error(t, err)
		got, err := s.Read(ctx, "c1")
		require.NoError(t, err)
		assert.JSONEq(t, sampleDoc, got)
	})

	t.Run("ids are isolated", func(t *testing.T) {
		_, err := s.Write(ctx, "c4", `["x"]`)
		require.NoError(t, err)
		got, err := s.Read(ctx, "c1")
		require.NoError(t, err)
		assert.JSONEq(t, sampleDoc, got)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		_, err := s.Write(ctx, "", `{}`)
		assert.Error(t, err)
	})

	t.Run("concurrent writers to distinct ids", func(t *testing.T) {
		var wg sync.WaitGroup
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := s.Write(ctx, id, `{"id": "`+id+`"}`)
				assert.NoError(t, err)
			}(id)
		}
		wg.Wait()
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			got, err := s.Read(ctx, id)
			require.NoError(t, err)
			assert.JSONEq(t, `{"id": "`+id+`"}`, got)
		}
	})
}

func TestFileStore_Contract(t *testing.T) {
	runStoreContract(t, testFile(t))
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, testSQLite(t))
}

func TestRedisStore_Contract(t *testing.T) {
	s, _ := testRedis(t)
	runStoreContract(t, s)
}

func TestFileStore_Layout(t *testing.T) {
	s := testFile(t)
	_, err := s.Write(context.Background(), "abc123", sampleDoc)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Dir(), "itinerary_abc123.json"))
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, string(data), "file backend stores bytes verbatim")

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, ids)
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	s := testFile(t)
	_, err := s.Write(context.Background(), "../escape", `{}`)
	assert.Error(t, err)
	_, err = s.Read(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestSQLite_Migrations(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	var count int
	require.NoError(t, s.SQL().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(sqliteMigrations), count)

	require.NoError(t, s.migrate(ctx), "re-running migrations is a no-op")
	require.NoError(t, s.SQL().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(sqliteMigrations), count)

	var name string
	require.NoError(t, s.SQL().QueryRow("SELECT name FROM sqlite_master WHERE type='trigger'").Scan(&name))
	assert.Equal(t, "itineraries_set_updated_at", name)
}

func TestSQLite_UpdatedAtMaintained(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	_, err := s.Write(ctx, "c1", `{"v": 1}`)
	require.NoError(t, err)
	// Backdate the row so the trigger's effect is observable.
	_, err = s.SQL().Exec("UPDATE itineraries SET updated_at = '2000-01-01 00:00:00.000' WHERE conversation_id = 'c1'")
	require.NoError(t, err)
	before, err := s.UpdatedAt(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "2000-01-01 00:00:00.000", before)

	_, err = s.Write(ctx, "c1", `{"v": 2}`)
	require.NoError(t, err)
	after, err := s.UpdatedAt(ctx, "c1")
	require.NoError(t, err)
	assert.Greater(t, after, before)

	_, err = s.UpdatedAt(ctx, "missing")
	assert.True(t, domain.Is(err, domain.ErrNotFound))
}

func TestSQLite_FilePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "wayfarer.db")
	ctx := context.Background()

	s, err := OpenSQL(ctx, SQLite, path, quietLog())
	require.NoError(t, err)
	_, err = s.Write(ctx, "c1", sampleDoc)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQL(ctx, SQLite, path, quietLog())
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Read(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, got)
}

func TestRedis_IndexTracksWrites(t *testing.T) {
	s, mr := testRedis(t)
	ctx := context.Background()

	_, err := s.Write(ctx, "a", `{}`)
	require.NoError(t, err)
	_, err = s.Write(ctx, "b", `{}`)
	require.NoError(t, err)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	raw, err := mr.Get(defaultRedisPrefix + "a")
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{Dir: dir}, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "file", s.Backend())
	s.Close()

	s, err = Open(ctx, Options{DatabaseURL: filepath.Join(dir, "it.db")}, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Backend())
	s.Close()

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Options{DatabaseURL: "redis://" + mr.Addr()}, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "redis", s.Backend())
	s.Close()
}

func TestImportFiles(t *testing.T) {
	ctx := context.Background()
	src := testFile(t)
	dst := testSQLite(t)

	_, err := src.Write(ctx, "good", sampleDoc)
	require.NoError(t, err)
	// Bypass validation to simulate a corrupt file on disk.
	require.NoError(t, os.WriteFile(filepath.Join(src.Dir(), FileName("bad")), []byte("{oops"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src.Dir(), "notes.txt"), []byte("ignored"), 0o644))

	res, err := ImportFiles(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, res.Imported)
	assert.Contains(t, res.Skipped, "bad")

	got, err := dst.Read(ctx, "good")
	require.NoError(t, err)
	var a, b any
	require.NoError(t, json.Unmarshal([]byte(got), &a))
	require.NoError(t, json.Unmarshal([]byte(sampleDoc), &b))
	assert.Equal(t, b, a)
}
