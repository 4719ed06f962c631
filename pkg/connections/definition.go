// Package connections implements the per-project Connection Registry: a
// typed union over the supported database backends, lazily-opened handles,
// and the small operation set (test, sqlSource, tableSource, queryData,
// temporaryTable) the rest of the catalog drives queries through.
//
// The Postgres path is grounded on the teacher's pgxpool-based connection
// manager; the remaining backends are database/sql drivers dispatched
// through a shared sqlConnection, the same shape the teacher's MSSQL adapter
// uses for non-pgx backends.
package connections

import "fmt"

// Type identifies a connection's backend. Exactly one of the attribute
// fields on Definition is populated for a given Type (spec §3 invariant).
type Type string

const (
	TypePostgres   Type = "postgres"
	TypeBigQuery   Type = "bigquery"
	TypeSnowflake  Type = "snowflake"
	TypeTrino      Type = "trino"
	TypeMySQL      Type = "mysql"
	TypeDuckDB     Type = "duckdb"
	TypeMotherDuck Type = "motherduck"
)

// PostgresAttributes holds Postgres connection attributes.
type PostgresAttributes struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode,omitempty"`
}

// MySQLAttributes holds MySQL connection attributes.
type MySQLAttributes struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// SnowflakeAttributes holds Snowflake connection attributes.
type SnowflakeAttributes struct {
	Account               string `json:"account"`
	Warehouse             string `json:"warehouse"`
	Database              string `json:"database"`
	Schema                string `json:"schema"`
	Role                  string `json:"role,omitempty"`
	User                  string `json:"user"`
	Password              string `json:"password"`
	ResponseTimeoutSeconds int    `json:"responseTimeoutSeconds,omitempty"`
}

// TrinoAttributes holds Trino connection attributes.
type TrinoAttributes struct {
	Server   string `json:"server"`
	Catalog  string `json:"catalog"`
	Schema   string `json:"schema"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	PeakaKey string `json:"peakaKey,omitempty"`
}

// BigQueryAttributes holds BigQuery connection attributes.
type BigQueryAttributes struct {
	ProjectID             string `json:"projectId"`
	BillingProjectID      string `json:"billingProjectId,omitempty"`
	Location              string `json:"location,omitempty"`
	ServiceAccountKeyJSON string `json:"serviceAccountKeyJson,omitempty"`
	MaximumBytesBilled    int64  `json:"maximumBytesBilled,omitempty"`
	QueryTimeoutMillis    int64  `json:"queryTimeoutMillis,omitempty"`
}

// DuckDBAttributes holds DuckDB connection attributes. DuckDB has no
// required attributes (spec §4.3): an empty struct is a valid variant.
type DuckDBAttributes struct {
	DatabasePath string `json:"databasePath,omitempty"`
}

// MotherDuckAttributes holds MotherDuck connection attributes.
type MotherDuckAttributes struct {
	AccessToken string `json:"accessToken"`
	Database    string `json:"database"`
}

// Definition is the tagged union described in spec §3. Exactly one of the
// attribute pointers below is non-nil, matching Type.
type Definition struct {
	Name string `json:"name"`
	Type Type   `json:"type"`

	Postgres   *PostgresAttributes   `json:"postgres,omitempty"`
	MySQL      *MySQLAttributes      `json:"mysql,omitempty"`
	Snowflake  *SnowflakeAttributes  `json:"snowflake,omitempty"`
	Trino      *TrinoAttributes      `json:"trino,omitempty"`
	BigQuery   *BigQueryAttributes   `json:"bigquery,omitempty"`
	DuckDB     *DuckDBAttributes     `json:"duckdb,omitempty"`
	MotherDuck *MotherDuckAttributes `json:"motherduck,omitempty"`
}

// Validate checks that exactly one attribute record matches Type.
func (d *Definition) Validate() error {
	populated := 0
	matches := false
	check := func(t Type, present bool) {
		if present {
			populated++
			if t == d.Type {
				matches = true
			}
		}
	}
	check(TypePostgres, d.Postgres != nil)
	check(TypeMySQL, d.MySQL != nil)
	check(TypeSnowflake, d.Snowflake != nil)
	check(TypeTrino, d.Trino != nil)
	check(TypeBigQuery, d.BigQuery != nil)
	check(TypeDuckDB, d.DuckDB != nil)
	check(TypeMotherDuck, d.MotherDuck != nil)

	if d.Type == TypeDuckDB && populated == 0 {
		return nil // zero-attribute variant is valid for duckdb
	}
	if populated != 1 {
		return fmt.Errorf("connection %q: expected exactly one attribute record for type %q, found %d", d.Name, d.Type, populated)
	}
	if !matches {
		return fmt.Errorf("connection %q: populated attribute record does not match type %q", d.Name, d.Type)
	}
	return nil
}
