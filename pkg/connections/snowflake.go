package connections

import (
	"context"
	"fmt"

	_ "github.com/snowflakedb/gosnowflake"
)

func newSnowflakeConnection(ctx context.Context, name string, attrs *SnowflakeAttributes) (Connection, error) {
	timeout := attrs.ResponseTimeoutSeconds
	if timeout <= 0 {
		timeout = 60
	}
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s&clientTimeout=%d",
		attrs.User, attrs.Password, attrs.Account, attrs.Database, attrs.Schema,
		attrs.Warehouse, attrs.Role, timeout)
	return newSQLConnection(ctx, name, "snowflake", dsn)
}
