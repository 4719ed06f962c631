package connections

import (
	"context"

	_ "github.com/marcboeker/go-duckdb"
)

func newDuckDBConnection(ctx context.Context, name string, attrs *DuckDBAttributes) (Connection, error) {
	path := ":memory:"
	if attrs != nil && attrs.DatabasePath != "" {
		path = attrs.DatabasePath
	}
	return newSQLConnection(ctx, name, "duckdb", path)
}
