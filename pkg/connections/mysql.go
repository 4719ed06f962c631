package connections

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-engine/pkg/config"
)

func newMySQLConnection(ctx context.Context, name string, attrs *MySQLAttributes) (Connection, error) {
	host := config.ResolveHostForDocker(attrs.Host)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", attrs.User, attrs.Password, host, attrs.Port, attrs.Database)
	return newSQLConnection(ctx, name, "mysql", dsn)
}
