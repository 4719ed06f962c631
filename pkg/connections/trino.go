package connections

import (
	"context"
	"fmt"
	"net/url"

	_ "github.com/trinodb/trino-go-client/trino"
)

func newTrinoConnection(ctx context.Context, name string, attrs *TrinoAttributes) (Connection, error) {
	q := url.Values{}
	if attrs.Password != "" {
		q.Set("password", attrs.Password)
	}
	if attrs.PeakaKey != "" {
		q.Set("peakaKey", attrs.PeakaKey)
	}
	dsn := fmt.Sprintf("https://%s@%s?catalog=%s&schema=%s", attrs.User, attrs.Server, attrs.Catalog, attrs.Schema)
	if encoded := q.Encode(); encoded != "" {
		dsn += "&" + encoded
	}
	return newSQLConnection(ctx, name, "trino", dsn)
}
