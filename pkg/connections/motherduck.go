package connections

import (
	"context"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// MotherDuck is accessed through the same duckdb driver, pointed at a
// "md:" DSN carrying the access token (spec §4.3's AccessToken/Database
// attribute pair).
func newMotherDuckConnection(ctx context.Context, name string, attrs *MotherDuckAttributes) (Connection, error) {
	dsn := fmt.Sprintf("md:%s?motherduck_token=%s", attrs.Database, attrs.AccessToken)
	return newSQLConnection(ctx, name, "duckdb", dsn)
}
