package recordstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/airguard/internal/domain/records"
)

// ErrRowNotFound is returned by Update when no row carries the given id.
var ErrRowNotFound = errors.New("row not found")

// MemoryTable is an in-memory records.Table used for tests/dev.
type MemoryTable[T any] struct {
	mu    sync.RWMutex
	spec  tableSpec[T]
	rows  map[string]T
	order []string
	now   func() time.Time
}

func newMemoryTable[T any](spec tableSpec[T]) *MemoryTable[T] {
	return &MemoryTable[T]{
		spec: spec,
		rows: make(map[string]T),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Insert implements records.Table.
func (t *MemoryTable[T]) Insert(_ context.Context, row T) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.spec.id(row)
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := t.rows[id]; exists {
		var zero T
		return zero, fmt.Errorf("%s: duplicate id %s", t.spec.name, id)
	}
	now := t.now()
	row = t.spec.stamp(t.spec.withID(row, id), now, now)
	t.rows[id] = row
	t.order = append(t.order, id)
	return row, nil
}

// Get implements records.Table.
func (t *MemoryTable[T]) Get(_ context.Context, id string) (T, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok, nil
}

// Update implements records.Table.
func (t *MemoryTable[T]) Update(_ context.Context, row T) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.spec.id(row)
	existing, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", t.spec.name, id, ErrRowNotFound)
	}
	row = t.spec.stamp(row, t.spec.created(existing), t.now())
	t.rows[id] = row
	return row, nil
}

// List implements records.Table. Rows come back in insertion order.
func (t *MemoryTable[T]) List(_ context.Context, filter records.Filter) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0)
	for _, id := range t.order {
		row := t.rows[id]
		if t.matches(row, filter) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t *MemoryTable[T]) matches(row T, filter records.Filter) bool {
	if len(filter) == 0 {
		return true
	}
	values := t.spec.values(row)
	values["id"] = t.spec.id(row)
	for column, want := range filter {
		got, ok := values[column]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalize(got), normalize(want)) {
			return false
		}
	}
	return true
}

// normalize dereferences pointers and flattens named scalar types so that a
// *string column compares equal to a plain string filter value.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return rv.Interface()
	}
}

// NewMemoryCatalog builds a catalog whose tables live in process memory.
func NewMemoryCatalog() *records.Catalog {
	return &records.Catalog{
		Locations:   newMemoryTable(locationsTable),
		Stations:    newMemoryTable(stationsTable),
		Pollutants:  newMemoryTable(pollutantsTable),
		Readings:    newMemoryTable(readingsTable),
		Summaries:   newMemoryTable(summariesTable),
		Buckets:     newMemoryTable(bucketsTable),
		Alerts:      newMemoryTable(alertsTable),
		Predictions: newMemoryTable(predictionsTable),
		Profiles:    newMemoryTable(profilesTable),
	}
}

var _ records.Table[records.Location] = (*MemoryTable[records.Location])(nil)
