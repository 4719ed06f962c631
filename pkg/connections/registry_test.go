package connections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/logging"
)

func TestRegistry_ListIsSorted(t *testing.T) {
	r := NewRegistry([]Definition{
		{Name: "zeta", Type: TypeDuckDB},
		{Name: "alpha", Type: TypeDuckDB},
	}, nil)
	assert.Equal(t, []string{"alpha", "zeta"}, r.List())
}

func TestRegistry_GetUnknownNameIsConnectionNotFound(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnectionNotFound, apperrors.KindOf(err))
}

func TestRegistry_CloseIsIdempotentOnEmptyRegistry(t *testing.T) {
	r := NewRegistry(nil, nil)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}

func TestRegistry_Snapshots_OmitCredentials(t *testing.T) {
	r := NewRegistry([]Definition{
		{Name: "warehouse", Type: TypePostgres, Postgres: &PostgresAttributes{Host: "db", Password: "secret"}},
	}, nil)
	snaps := r.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "warehouse", snaps[0].Name)
	assert.Equal(t, "postgres", snaps[0].Type)
	_, err := uuid.Parse(snaps[0].ID)
	assert.NoError(t, err, "snapshot ID should be a valid uuid")
}

func TestRegistry_Snapshots_IDIsStableAcrossCallsButUniquePerConnection(t *testing.T) {
	r := NewRegistry([]Definition{
		{Name: "warehouse", Type: TypeDuckDB, DuckDB: &DuckDBAttributes{}},
		{Name: "lake", Type: TypeDuckDB, DuckDB: &DuckDBAttributes{}},
	}, nil)

	first := r.Snapshots()
	second := r.Snapshots()
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestRegistry_SnapshotOf_UnknownIsConnectionNotFound(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.SnapshotOf("missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnectionNotFound, apperrors.KindOf(err))
}

func TestRegistry_QueryData_RejectsMultipleStatements(t *testing.T) {
	r := NewRegistry([]Definition{{Name: "warehouse", Type: TypeDuckDB, DuckDB: &DuckDBAttributes{}}}, nil)
	_, err := r.QueryData(context.Background(), "warehouse", "SELECT 1; DROP TABLE users", QueryOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
}

func TestRegistry_SQLSource_UnknownConnectionStillValidatesSQLFirst(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.SQLSource(context.Background(), "missing", "SELECT 1; SELECT 2")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
}

func TestRegistry_Get_LogsSanitizedConnectionStringOnSuccess(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	r := NewRegistry([]Definition{
		{Name: "warehouse", Type: TypeDuckDB, DuckDB: &DuckDBAttributes{}},
	}, logger)

	_, err := r.Get(context.Background(), "warehouse")
	require.NoError(t, err)

	entries := logs.FilterMessage("opened connection").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "warehouse", entries[0].ContextMap()["name"])
}

func TestConnectionLogString_PostgresPasswordIsRedactedBySanitizer(t *testing.T) {
	def := &Definition{Name: "warehouse", Type: TypePostgres, Postgres: &PostgresAttributes{
		Host: "db.internal", Port: 5432, Database: "analytics", User: "alice", Password: "hunter2",
	}}
	sanitized := logging.SanitizeConnectionString(connectionLogString(def))
	assert.NotContains(t, sanitized, "hunter2")
	assert.Contains(t, sanitized, "REDACTED")
}
