package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

func newQueryTestStore(t *testing.T) *ProjectStore {
	t.Helper()
	serverRoot := t.TempDir()
	pkgDir := filepath.Join(serverRoot, "home", "analytics")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(pkgDir, "flights.malloy"),
		[]byte("source: flights is table('x') extend {\n  view: by_carrier is { aggregate: c is count() }\n}\nquery: top_carriers is flights->by_carrier\n"),
		0o644,
	))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "notes.malloynb"), []byte("# hello\nnotebook text"), 0o644))

	writePublisherConfig(t, serverRoot, map[string]any{
		"frozenConfig": false,
		"projects": []map[string]any{
			{"name": "home", "packages": []map[string]any{{"name": "analytics", "location": pkgDir}}},
		},
	})

	store, err := NewProjectStore(context.Background(), serverRoot, malloyrt.NewNaiveRuntime(), localFetcher{}, nil)
	require.NoError(t, err)
	return store
}

func TestExecuteQuery_RejectsBothQueryAndQueryName(t *testing.T) {
	store := newQueryTestStore(t)
	_, err := ExecuteQuery(context.Background(), store, "home", "analytics", "flights.malloy",
		malloyrt.QueryRequest{Query: "run: flights->{ aggregate: c is count() }", QueryName: "top_carriers"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
	assert.Equal(t, "Cannot provide both 'query' and 'queryName'", err.Error())
}

func TestExecuteQuery_RejectsNeitherQueryNorQueryName(t *testing.T) {
	store := newQueryTestStore(t)
	_, err := ExecuteQuery(context.Background(), store, "home", "analytics", "flights.malloy", malloyrt.QueryRequest{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
	assert.Equal(t, "Must provide exactly one of 'query' or 'queryName'", err.Error())
}

func TestExecuteQuery_UnknownProjectIsProjectNotFound(t *testing.T) {
	store := newQueryTestStore(t)
	_, err := ExecuteQuery(context.Background(), store, "missing", "analytics", "flights.malloy", malloyrt.QueryRequest{Query: "run: x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindProjectNotFound, apperrors.KindOf(err))
}

func TestExecuteQuery_UnknownPackageIsPackageNotFound(t *testing.T) {
	store := newQueryTestStore(t)
	_, err := ExecuteQuery(context.Background(), store, "home", "missing", "flights.malloy", malloyrt.QueryRequest{Query: "run: x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPackageNotFound, apperrors.KindOf(err))
}

func TestExecuteQuery_UnknownModelIsModelNotFound(t *testing.T) {
	store := newQueryTestStore(t)
	_, err := ExecuteQuery(context.Background(), store, "home", "analytics", "missing.malloy", malloyrt.QueryRequest{Query: "run: x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindModelNotFound, apperrors.KindOf(err))
}

func TestExecuteQuery_NotebookPathIsModelNotFound(t *testing.T) {
	store := newQueryTestStore(t)
	_, err := ExecuteQuery(context.Background(), store, "home", "analytics", "notes.malloynb", malloyrt.QueryRequest{Query: "run: x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindModelNotFound, apperrors.KindOf(err))
}

func TestExecuteQuery_AdHocQueryReachesConnectionRegistry(t *testing.T) {
	store := newQueryTestStore(t)
	// No connections are configured for this project, so resolution succeeds
	// through compile but fails once the runtime tries to reach the
	// "default" connection — proving the executor wires query text all the
	// way down to the registry rather than stopping at compile.
	_, err := ExecuteQuery(context.Background(), store, "home", "analytics", "flights.malloy",
		malloyrt.QueryRequest{Query: "run: flights->{ aggregate: c is count() }"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnectionNotFound, apperrors.KindOf(err))
}

func TestExecuteQuery_NamedViewWithoutConnectionFailsAtConnectionLookup(t *testing.T) {
	store := newQueryTestStore(t)
	_, err := ExecuteQuery(context.Background(), store, "home", "analytics", "flights.malloy",
		malloyrt.QueryRequest{SourceName: "flights", QueryName: "by_carrier"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnectionNotFound, apperrors.KindOf(err))
}

func TestExecuteQuery_CanceledContextIsReported(t *testing.T) {
	store := newQueryTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExecuteQuery(ctx, store, "home", "analytics", "flights.malloy", malloyrt.QueryRequest{Query: "run: x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
