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

type fakeResolver struct{}

func (fakeResolver) QueryData(ctx context.Context, connectionName, sql string, rowLimit int) (*malloyrt.QueryResult, error) {
	rows := make([]map[string]any, 0, rowLimit+5)
	for i := 0; i < rowLimit+5; i++ {
		rows = append(rows, map[string]any{"n": i})
	}
	return &malloyrt.QueryResult{Columns: []string{"n"}, Rows: rows}, nil
}

func writeModelFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestModel_KindClassification(t *testing.T) {
	dir := t.TempDir()
	m := NewModel("pkg1", "orders.malloy", dir, malloyrt.NewNaiveRuntime(), fakeResolver{})
	assert.Equal(t, KindModel, m.Kind())

	nb := NewModel("pkg1", "report.malloynb", dir, malloyrt.NewNaiveRuntime(), fakeResolver{})
	assert.Equal(t, KindNotebook, nb.Kind())
}

func TestModel_CompileIsMemoized(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "orders.malloy", "source: orders is table('orders') extend { }")
	m := NewModel("pkg1", "orders.malloy", dir, malloyrt.NewNaiveRuntime(), fakeResolver{})

	first, err := m.GetModel(context.Background(), "proj1")
	require.NoError(t, err)

	// Remove the backing file; a second call must not re-read it.
	require.NoError(t, os.Remove(filepath.Join(dir, "orders.malloy")))
	second, err := m.GetModel(context.Background(), "proj1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestModel_WrongKindIsModelNotFound(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "report.malloynb", "# title\nsome text")
	m := NewModel("pkg1", "report.malloynb", dir, malloyrt.NewNaiveRuntime(), fakeResolver{})

	_, err := m.GetModel(context.Background(), "proj1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindModelNotFound, apperrors.KindOf(err))
}

func TestModel_MissingFileIsCompilationError(t *testing.T) {
	dir := t.TempDir()
	m := NewModel("pkg1", "missing.malloy", dir, malloyrt.NewNaiveRuntime(), fakeResolver{})

	_, err := m.GetModel(context.Background(), "proj1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindModelCompilation, apperrors.KindOf(err))
}

func TestModel_QueryResultsRowCapped(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "orders.malloy", "query: top is orders -> { project: * }")
	m := NewModel("pkg1", "orders.malloy", dir, malloyrt.NewNaiveRuntime(), fakeResolver{})

	result, err := m.GetQueryResults(context.Background(), "proj1", malloyrt.QueryRequest{QueryName: "top"}, 10)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 10)
}
