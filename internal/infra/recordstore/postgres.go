package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/airguard/internal/domain/records"
)

// PostgresTable implements records.Table using pgx and squirrel.
type PostgresTable[T any] struct {
	pool    *pgxpool.Pool
	spec    tableSpec[T]
	builder sq.StatementBuilderType
	selects string
}

func newPostgresTable[T any](pool *pgxpool.Pool, spec tableSpec[T]) *PostgresTable[T] {
	return &PostgresTable[T]{
		pool:    pool,
		spec:    spec,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		selects: selectList(spec),
	}
}

// Insert adds a row; id and timestamps fall back to column defaults.
func (t *PostgresTable[T]) Insert(ctx context.Context, row T) (T, error) {
	values := t.spec.values(row)
	if id := t.spec.id(row); id != "" {
		values["id"] = id
	}
	query, args, err := t.builder.Insert(t.spec.name).SetMap(values).Suffix("RETURNING " + t.selects).ToSql()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("build insert %s: %w", t.spec.name, err)
	}
	out, err := t.spec.scan(t.pool.QueryRow(ctx, query, args...))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("insert %s: %w", t.spec.name, err)
	}
	return out, nil
}

// Get fetches a row by primary key.
func (t *PostgresTable[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	query, args, err := t.builder.Select(t.selects).From(t.spec.name).Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return zero, false, fmt.Errorf("build select %s: %w", t.spec.name, err)
	}
	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return zero, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return zero, false, rows.Err()
	}
	out, err := t.spec.scan(rows)
	if err != nil {
		return zero, false, err
	}
	return out, true, rows.Err()
}

// Update replaces every writable column of the row with the same id.
func (t *PostgresTable[T]) Update(ctx context.Context, row T) (T, error) {
	var zero T
	id := t.spec.id(row)
	if id == "" {
		return zero, fmt.Errorf("update %s: empty id", t.spec.name)
	}
	stmt := t.builder.Update(t.spec.name).SetMap(t.spec.values(row))
	if t.spec.hasUpdatedAt {
		stmt = stmt.Set("updated_at", sq.Expr("NOW()"))
	}
	query, args, err := stmt.Where(sq.Eq{"id": id}).Suffix("RETURNING " + t.selects).ToSql()
	if err != nil {
		return zero, fmt.Errorf("build update %s: %w", t.spec.name, err)
	}
	out, err := t.spec.scan(t.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, fmt.Errorf("%s %s: %w", t.spec.name, id, ErrRowNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", t.spec.name, err)
	}
	return out, nil
}

// List returns rows matching filter, oldest first.
func (t *PostgresTable[T]) List(ctx context.Context, filter records.Filter) ([]T, error) {
	stmt := t.builder.Select(t.selects).From(t.spec.name).OrderBy("created_at")
	if len(filter) > 0 {
		stmt = stmt.Where(sq.Eq(filter))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s: %w", t.spec.name, err)
	}
	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		row, err := t.spec.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// selectList renders the column list, casting uuid columns to text so they
// scan into the string-backed identifier types.
func selectList[T any](spec tableSpec[T]) string {
	cols := make([]string, 0, len(spec.columns))
	for _, c := range spec.columns {
		if spec.uuidColumns[c] {
			cols = append(cols, c+"::text AS "+c)
			continue
		}
		cols = append(cols, c)
	}
	return strings.Join(cols, ", ")
}

// NewPostgresCatalog builds a catalog backed by the given pool.
func NewPostgresCatalog(pool *pgxpool.Pool) *records.Catalog {
	return &records.Catalog{
		Locations:   newPostgresTable(pool, locationsTable),
		Stations:    newPostgresTable(pool, stationsTable),
		Pollutants:  newPostgresTable(pool, pollutantsTable),
		Readings:    newPostgresTable(pool, readingsTable),
		Summaries:   newPostgresTable(pool, summariesTable),
		Buckets:     newPostgresTable(pool, bucketsTable),
		Alerts:      newPostgresTable(pool, alertsTable),
		Predictions: newPostgresTable(pool, predictionsTable),
		Profiles:    newPostgresTable(pool, profilesTable),
	}
}

var _ records.Table[records.Location] = (*PostgresTable[records.Location])(nil)
