package connections

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
)

// QueryOptions controls a queryData call (spec §4.3, §4.4).
type QueryOptions struct {
	RowLimit int // 0 means use the registry default (ROW_LIMIT)
}

// QueryResult mirrors the teacher's datasource.QueryResult shape, carrying
// rows as generic maps since connections here serve ad-hoc Malloy-resolved
// SQL rather than a fixed application schema.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Connection is the operation set the Connection Registry exposes over a
// single named backend (spec §4.3): test, and the three shapes the query
// planner needs to read data through.
type Connection interface {
	// Test opens (if needed) and pings the backend.
	Test(ctx context.Context) error

	// SQLSource wraps an arbitrary SQL string as a queryable source.
	SQLSource(ctx context.Context, sql string) (string, error)

	// TableSource resolves a physical table reference (e.g. a Parquet file
	// or BigQuery table ID) as a queryable source.
	TableSource(ctx context.Context, tableKey, tablePath string) (string, error)

	// QueryData executes sql and returns its rows, row-capped per opts.
	QueryData(ctx context.Context, sql string, opts QueryOptions) (*QueryResult, error)

	// TemporaryTable materializes sql's result set as a scratch table and
	// returns its reference.
	TemporaryTable(ctx context.Context, sql string) (string, error)

	// Close releases any pooled handle. Idempotent.
	Close() error
}

// Open constructs the Connection implementation for def, dispatching on
// def.Type. The database/sql-backed types (mysql, snowflake, trino, duckdb,
// motherduck) ping with retry while opening and fail if unreachable;
// postgres and bigquery only construct their client here. Test pings any
// of them (spec §4.3's "open + ping" semantics).
func Open(ctx context.Context, def *Definition) (Connection, error) {
	if err := def.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindBadRequest, err, fmt.Sprintf("invalid connection %q", def.Name))
	}

	switch def.Type {
	case TypePostgres:
		return newPostgresConnection(ctx, def.Name, def.Postgres)
	case TypeMySQL:
		return newMySQLConnection(ctx, def.Name, def.MySQL)
	case TypeSnowflake:
		return newSnowflakeConnection(ctx, def.Name, def.Snowflake)
	case TypeTrino:
		return newTrinoConnection(ctx, def.Name, def.Trino)
	case TypeBigQuery:
		return newBigQueryConnection(ctx, def.Name, def.BigQuery)
	case TypeDuckDB:
		return newDuckDBConnection(ctx, def.Name, def.DuckDB)
	case TypeMotherDuck:
		return newMotherDuckConnection(ctx, def.Name, def.MotherDuck)
	default:
		return nil, apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("connection %q: unknown type %q", def.Name, def.Type))
	}
}
