package connections

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/retry"
)

// sqlConnection implements Connection over any database/sql driver. The
// MySQL, Snowflake, Trino, DuckDB, and MotherDuck backends all ship a
// database/sql driver, so they share this implementation the way the
// teacher's MSSQL adapter wraps a plain *sql.DB rather than a
// backend-specific pool (pkg/adapters/datasource/pool_factories.go's
// MSSQLPoolWrapper).
type sqlConnection struct {
	name   string
	driver string
	db     *sql.DB
}

func newSQLConnection(ctx context.Context, name, driver, dsn string) (*sqlConnection, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: failed to open %s", name, driver))
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := retry.Do(ctx, retry.DefaultConfig(), func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: failed to reach %s", name, driver))
	}

	return &sqlConnection{name: name, driver: driver, db: db}, nil
}

func (c *sqlConnection) Test(ctx context.Context) error {
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error { return c.db.PingContext(ctx) }); err != nil {
		return apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: ping failed", c.name))
	}
	return nil
}

func (c *sqlConnection) SQLSource(ctx context.Context, sql string) (string, error) {
	return fmt.Sprintf("(%s) AS %s_sql", sql, c.name), nil
}

func (c *sqlConnection) TableSource(ctx context.Context, tableKey, tablePath string) (string, error) {
	return tablePath, nil
}

func (c *sqlConnection) QueryData(ctx context.Context, query string, opts QueryOptions) (*QueryResult, error) {
	limit := opts.RowLimit
	if limit <= 0 {
		limit = defaultRowLimit
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: query failed", c.name))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: column introspection failed", c.name))
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() && len(result.Rows) < limit {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: row scan failed", c.name))
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = vals[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: row iteration failed", c.name))
	}
	return result, nil
}

func (c *sqlConnection) TemporaryTable(ctx context.Context, query string) (string, error) {
	tableName := fmt.Sprintf("tmp_%s_%d", c.name, time.Now().UnixNano())
	stmt := fmt.Sprintf("CREATE TEMPORARY TABLE %s AS %s", tableName, query)
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return "", apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: temporary table creation failed", c.name))
	}
	return tableName, nil
}

func (c *sqlConnection) Close() error {
	return c.db.Close()
}
