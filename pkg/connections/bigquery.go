package connections

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/retry"
)

// bigqueryConnection has no database/sql driver to lean on, so it wraps the
// native cloud.google.com/go/bigquery client directly — the same "native
// SDK, not database/sql" shape the teacher reserves for backends whose Go
// driver doesn't implement the database/sql interfaces (see the teacher's
// own MSSQL-auth-complexity note in pool_factories.go).
type bigqueryConnection struct {
	name               string
	client             *bigquery.Client
	maximumBytesBilled int64
	queryTimeout       time.Duration
}

func newBigQueryConnection(ctx context.Context, name string, attrs *BigQueryAttributes) (Connection, error) {
	var opts []option.ClientOption
	if attrs.ServiceAccountKeyJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(attrs.ServiceAccountKeyJSON)))
	}

	billingProject := attrs.BillingProjectID
	if billingProject == "" {
		billingProject = attrs.ProjectID
	}

	client, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*bigquery.Client, error) {
		return bigquery.NewClient(ctx, billingProject, opts...)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: failed to open bigquery client", name))
	}
	if attrs.Location != "" {
		client.Location = attrs.Location
	}

	timeout := time.Duration(attrs.QueryTimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &bigqueryConnection{
		name:               name,
		client:             client,
		maximumBytesBilled: attrs.MaximumBytesBilled,
		queryTimeout:       timeout,
	}, nil
}

func (c *bigqueryConnection) Test(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.client.Query("SELECT 1").Read(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: test query failed", c.name))
	}
	return nil
}

func (c *bigqueryConnection) SQLSource(ctx context.Context, sql string) (string, error) {
	return fmt.Sprintf("(%s)", sql), nil
}

func (c *bigqueryConnection) TableSource(ctx context.Context, tableKey, tablePath string) (string, error) {
	return fmt.Sprintf("`%s`", tablePath), nil
}

func (c *bigqueryConnection) QueryData(ctx context.Context, sqlText string, opts QueryOptions) (*QueryResult, error) {
	limit := opts.RowLimit
	if limit <= 0 {
		limit = defaultRowLimit
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	q := c.client.Query(sqlText)
	if c.maximumBytesBilled > 0 {
		q.MaxBytesBilled = c.maximumBytesBilled
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: query failed", c.name))
	}

	var columns []string
	result := &QueryResult{Rows: []map[string]any{}}
	for len(result.Rows) < limit {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: row iteration failed", c.name))
		}
		if columns == nil {
			for _, f := range it.Schema {
				columns = append(columns, f.Name)
			}
		}
		converted := make(map[string]any, len(row))
		for k, v := range row {
			converted[k] = v
		}
		result.Rows = append(result.Rows, converted)
	}
	result.Columns = columns
	return result, nil
}

func (c *bigqueryConnection) TemporaryTable(ctx context.Context, sqlText string) (string, error) {
	tableName := fmt.Sprintf("tmp_%s_%d", c.name, time.Now().UnixNano())
	ddl := fmt.Sprintf("CREATE TEMP TABLE %s AS %s", tableName, sqlText)
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	job, err := c.client.Query(ddl).Run(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: temporary table creation failed", c.name))
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindConnection, err, fmt.Sprintf("connection %q: temporary table job failed", c.name))
	}
	if status.Err() != nil {
		return "", apperrors.Wrap(apperrors.KindConnection, status.Err(), fmt.Sprintf("connection %q: temporary table job reported error", c.name))
	}
	return tableName, nil
}

func (c *bigqueryConnection) Close() error {
	return c.client.Close()
}
