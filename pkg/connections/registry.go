package connections

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/logging"
	"github.com/ekaya-inc/ekaya-engine/pkg/sql"
)

// defaultRowLimit is ROW_LIMIT from spec §4.4: the row cap a connection
// applies to query results when QueryOptions.RowLimit is not positive.
const defaultRowLimit = 1000

// Registry is the per-project Connection Registry (spec §4.3): a name ->
// Connection map with lazy, singleton-per-name open semantics. A project
// update closes the Registry and builds a new one rather than mutating it
// in place; a project metadata reload keeps the existing Registry.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
	ids         map[string]string
	open        map[string]Connection
	logger      *zap.Logger
}

// NewRegistry builds a Registry from a project's connection definitions.
// Connections are not opened until first use. logger may be nil, which
// disables the connect/failure logging Get performs.
//
// Each definition is assigned a stable opaque ID (a fresh uuid, not derived
// from Name) that survives for the lifetime of this Registry. Name is the
// lookup key (spec §3); ID is an opaque connection identifier. A project
// update replaces the Registry, so every ID changes at that point.
func NewRegistry(defs []Definition, logger *zap.Logger) *Registry {
	byName := make(map[string]*Definition, len(defs))
	ids := make(map[string]string, len(defs))
	for i := range defs {
		d := defs[i]
		byName[d.Name] = &d
		ids[d.Name] = uuid.NewString()
	}
	return &Registry{
		definitions: byName,
		ids:         ids,
		open:        make(map[string]Connection),
		logger:      logger,
	}
}

// List returns connection names in stable (sorted) order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot is a credential-free view of a connection definition, for the
// HTTP/MCP surfaces (spec §3: callers never receive raw credentials back).
type Snapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Snapshots returns every connection's credential-free summary, sorted by
// name.
func (r *Registry) Snapshots() []Snapshot {
	names := r.List()
	snaps := make([]Snapshot, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		def := r.definitions[name]
		snaps = append(snaps, Snapshot{ID: r.ids[name], Name: def.Name, Type: string(def.Type)})
	}
	return snaps
}

// SnapshotOf returns the named connection's credential-free summary.
func (r *Registry) SnapshotOf(name string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	if !ok {
		return Snapshot{}, apperrors.NotFoundConnection(name)
	}
	return Snapshot{ID: r.ids[name], Name: def.Name, Type: string(def.Type)}, nil
}

// Get returns the open (opening lazily if needed) Connection for name.
func (r *Registry) Get(ctx context.Context, name string) (Connection, error) {
	r.mu.RLock()
	if conn, ok := r.open[name]; ok {
		r.mu.RUnlock()
		return conn, nil
	}
	def, known := r.definitions[name]
	r.mu.RUnlock()
	if !known {
		return nil, apperrors.NotFoundConnection(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: another goroutine may have opened it while we waited for the lock.
	if conn, ok := r.open[name]; ok {
		return conn, nil
	}
	conn, err := Open(ctx, def)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("failed to open connection",
				zap.String("name", name),
				zap.String("connection_id", r.ids[name]),
				zap.String("connection", logging.SanitizeConnectionString(connectionLogString(def))),
				zap.String("error", logging.SanitizeError(err)),
			)
		}
		return nil, err
	}
	if r.logger != nil {
		r.logger.Info("opened connection",
			zap.String("name", name),
			zap.String("connection_id", r.ids[name]),
			zap.String("connection", logging.SanitizeConnectionString(connectionLogString(def))),
		)
	}
	r.open[name] = conn
	return conn, nil
}

// connectionLogString renders def as a connection-string-shaped line for
// logging.SanitizeConnectionString to redact before it reaches the logger.
// Secrets that the sanitizer's patterns don't reliably cover (a service
// account JSON blob, a MotherDuck token) are never placed in the string.
func connectionLogString(def *Definition) string {
	switch def.Type {
	case TypePostgres:
		a := def.Postgres
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", a.User, a.Password, a.Host, a.Port, a.Database)
	case TypeMySQL:
		a := def.MySQL
		return fmt.Sprintf("mysql://%s:%s@%s:%d/%s", a.User, a.Password, a.Host, a.Port, a.Database)
	case TypeSnowflake:
		a := def.Snowflake
		return fmt.Sprintf("snowflake://%s:%s@%s/%s/%s", a.User, a.Password, a.Account, a.Database, a.Schema)
	case TypeTrino:
		a := def.Trino
		return fmt.Sprintf("trino://%s:%s@%s/%s/%s", a.User, a.Password, a.Server, a.Catalog, a.Schema)
	case TypeBigQuery:
		a := def.BigQuery
		return fmt.Sprintf("bigquery://%s/%s", a.ProjectID, a.Location)
	case TypeDuckDB:
		// A duckdb definition may carry no attribute record at all.
		path := ""
		if def.DuckDB != nil {
			path = def.DuckDB.DatabasePath
		}
		return fmt.Sprintf("duckdb://%s", path)
	case TypeMotherDuck:
		a := def.MotherDuck
		return fmt.Sprintf("motherduck://[REDACTED]@%s", a.Database)
	default:
		return fmt.Sprintf("%s://%s", def.Type, def.Name)
	}
}

// Test opens (if needed) and pings the named connection.
func (r *Registry) Test(ctx context.Context, name string) error {
	conn, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	return conn.Test(ctx)
}

// SQLSource, TableSource, QueryData, and TemporaryTable delegate to the
// named connection, surfacing ConnectionNotFound when name is unknown. Every
// entry point that accepts a caller-supplied SQL string runs it through
// normalizeSQL first, rejecting anything but a single statement.

func (r *Registry) SQLSource(ctx context.Context, name, rawSQL string) (string, error) {
	normalized, err := normalizeSQL(rawSQL)
	if err != nil {
		return "", err
	}
	conn, err := r.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return conn.SQLSource(ctx, normalized)
}

func (r *Registry) TableSource(ctx context.Context, name, tableKey, tablePath string) (string, error) {
	conn, err := r.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return conn.TableSource(ctx, tableKey, tablePath)
}

func (r *Registry) QueryData(ctx context.Context, name, rawSQL string, opts QueryOptions) (*QueryResult, error) {
	normalized, err := normalizeSQL(rawSQL)
	if err != nil {
		return nil, err
	}
	conn, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return conn.QueryData(ctx, normalized, opts)
}

func (r *Registry) TemporaryTable(ctx context.Context, name, rawSQL string) (string, error) {
	normalized, err := normalizeSQL(rawSQL)
	if err != nil {
		return "", err
	}
	conn, err := r.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return conn.TemporaryTable(ctx, normalized)
}

// normalizeSQL strips a trailing semicolon and rejects multi-statement SQL
// (spec §4.3's raw-SQL entry points accept exactly one statement).
func normalizeSQL(rawSQL string) (string, error) {
	result := sql.ValidateAndNormalize(rawSQL)
	if result.Error != nil {
		return "", apperrors.Wrap(apperrors.KindBadRequest, result.Error, "invalid SQL")
	}
	return result.NormalizedSQL, nil
}

// Close releases every opened connection. Safe to call once during project
// teardown or before a registry is replaced on project update.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for name, conn := range r.open {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.open, name)
	}
	return firstErr
}
