package connections

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/config"
	"github.com/ekaya-inc/ekaya-engine/pkg/retry"
)

// postgresConnection wraps a pgxpool.Pool, the same pooling library the
// teacher's connection manager uses for Postgres (grounded on
// pkg/adapters/datasource/connection_manager.go's GetOrCreatePool: retry-
// wrapped health checks over a pooled handle).
type postgresConnection struct {
	name string
	pool *pgxpool.Pool
}

func newPostgresConnection(ctx context.Context, name string, attrs *PostgresAttributes) (*postgresConnection, error) {
	sslMode := attrs.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	// A connection definition authored against a host machine's "localhost"
	// needs rewriting to host.docker.internal when the publisher server
	// itself runs inside a container (spec §3 connection attributes carry
	// whatever host the project author wrote, not what's reachable from
	// inside this process).
	host := config.ResolveHostForDocker(attrs.Host)
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		attrs.User, attrs.Password, host, attrs.Port, attrs.Database, sslMode)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: invalid postgres config", name))
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		return pgxpool.NewWithConfig(ctx, poolConfig)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: failed to open postgres pool", name))
	}

	return &postgresConnection{name: name, pool: pool}, nil
}

func (c *postgresConnection) Test(ctx context.Context) error {
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error { return c.pool.Ping(ctx) }); err != nil {
		return apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: ping failed", c.name))
	}
	return nil
}

func (c *postgresConnection) SQLSource(ctx context.Context, sql string) (string, error) {
	return fmt.Sprintf("(%s) AS %s_sql", sql, c.name), nil
}

func (c *postgresConnection) TableSource(ctx context.Context, tableKey, tablePath string) (string, error) {
	return tablePath, nil
}

func (c *postgresConnection) QueryData(ctx context.Context, sql string, opts QueryOptions) (*QueryResult, error) {
	limit := opts.RowLimit
	if limit <= 0 {
		limit = defaultRowLimit
	}

	rows, err := c.pool.Query(ctx, sql)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: query failed", c.name))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() && len(result.Rows) < limit {
		vals, err := rows.Values()
		if err != nil {
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

func (c *postgresConnection) TemporaryTable(ctx context.Context, sql string) (string, error) {
	tableName := fmt.Sprintf("tmp_%s_%d", c.name, time.Now().UnixNano())
	stmt := fmt.Sprintf("CREATE TEMPORARY TABLE %s AS %s", tableName, sql)
	if _, err := c.pool.Exec(ctx, stmt); err != nil {
		return "", apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: temporary table creation failed", c.name))
	}
	return tableName, nil
}

func (c *postgresConnection) Close() error {
	c.pool.Close()
	return nil
}
