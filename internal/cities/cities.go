// Package cities maps free-text city names to accommodation provider ids.
package cities

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/soyeahso/wayfarer/internal/logging"
)

// Resolver loads the mapping table on first lookup and never reloads it.
// It is safe for concurrent use.
type Resolver struct {
	path string
	log  *logging.Logger

	once  sync.Once
	table map[string]int
}

// NewResolver returns a resolver backed by the CSV file at path. A missing
// file yields an empty table.
func NewResolver(path string, log *logging.Logger) *Resolver {
	return &Resolver{path: path, log: log.Sub("cities")}
}

// FromMap builds a resolver over a fixed table. Keys are normalized.
func FromMap(m map[string]int) *Resolver {
	r := &Resolver{log: logging.New(nil, "silent")}
	r.once.Do(func() {
		r.table = make(map[string]int, len(m))
		for k, v := range m {
			r.table[Normalize(k)] = v
		}
	})
	return r
}

// Normalize trims and case-folds a city name.
func Normalize(name string) string {
	// A Caser holds state, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(name))
}

// Resolve returns the provider id for name. Unknown names report false.
func (r *Resolver) Resolve(name string) (int, bool) {
	r.once.Do(r.load)
	id, ok := r.table[Normalize(name)]
	return id, ok
}

// Len returns the number of mapped cities, loading the table if needed.
func (r *Resolver) Len() int {
	r.once.Do(r.load)
	return len(r.table)
}

func (r *Resolver) load() {
	r.table = map[string]int{}
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.log.Warn().Str("path", r.path).Msg("city mapping not found; every lookup will miss")
		} else {
			r.log.Error().Err(err).Str("path", r.path).Msg("opening city mapping")
		}
		return
	}
	defer f.Close()

	table, err := Parse(f)
	if err != nil {
		r.log.Error().Err(err).Str("path", r.path).Msg("reading city mapping")
	}
	r.table = table
	r.log.Info().Int("cities", len(table)).Str("path", r.path).Msg("loaded city mappings")
}

// Parse reads a header row naming an id column (city_id or cityId) and a
// name column (city or city_name). Rows with a zero or non-integer id, or
// an empty name, are skipped. Parse returns what it read before any error.
func Parse(rd io.Reader) (map[string]int, error) {
	table := map[string]int{}
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return table, nil
	}
	if err != nil {
		return table, fmt.Errorf("reading header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	idCols := present(cols, "city_id", "cityId")
	nameCols := present(cols, "city", "city_name")

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return table, fmt.Errorf("reading row: %w", err)
		}
		raw := first(rec, idCols)
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if raw != "" && err != nil {
			continue
		}
		name := first(rec, nameCols)
		if id == 0 || name == "" {
			continue
		}
		table[Normalize(name)] = id
	}
}

func present(cols map[string]int, names ...string) []int {
	var idx []int
	for _, n := range names {
		if i, ok := cols[n]; ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// first returns the first non-empty field among the given columns.
func first(rec []string, idx []int) string {
	for _, i := range idx {
		if i < len(rec) && rec[i] != "" {
			return rec[i]
		}
	}
	return ""
}
