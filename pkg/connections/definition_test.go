package connections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinitionValidate(t *testing.T) {
	t.Run("matching single attribute record is valid", func(t *testing.T) {
		d := &Definition{Name: "warehouse", Type: TypePostgres, Postgres: &PostgresAttributes{Host: "localhost"}}
		assert.NoError(t, d.Validate())
	})

	t.Run("duckdb with no attributes is valid", func(t *testing.T) {
		d := &Definition{Name: "local", Type: TypeDuckDB}
		assert.NoError(t, d.Validate())
	})

	t.Run("mismatched attribute record is rejected", func(t *testing.T) {
		d := &Definition{Name: "bad", Type: TypeSnowflake, Postgres: &PostgresAttributes{Host: "localhost"}}
		assert.Error(t, d.Validate())
	})

	t.Run("multiple attribute records are rejected", func(t *testing.T) {
		d := &Definition{
			Name:     "bad",
			Type:     TypePostgres,
			Postgres: &PostgresAttributes{Host: "localhost"},
			MySQL:    &MySQLAttributes{Host: "localhost"},
		}
		assert.Error(t, d.Validate())
	})
}
