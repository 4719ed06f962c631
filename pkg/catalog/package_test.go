package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

func newTestPackage(t *testing.T, files map[string]string) *Package {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	pkg, err := LoadPackage("proj1", "analytics", "file:"+dir, dir, malloyrt.NewNaiveRuntime(), fakeResolver{})
	require.NoError(t, err)
	return pkg
}

func TestPackage_ScansModelsAndNotebooks(t *testing.T) {
	pkg := newTestPackage(t, map[string]string{
		"orders.malloy":   "source: orders is table('orders') extend { }",
		"report.malloynb": "# title\ntext",
		"README.md":       "ignored",
	})

	assert.Equal(t, []string{"orders.malloy"}, pkg.ListModels())
	assert.Equal(t, []string{"report.malloynb"}, pkg.ListNotebooks())
}

func TestPackage_GetModel_AbsentReturnsNilNoError(t *testing.T) {
	pkg := newTestPackage(t, map[string]string{"orders.malloy": "source: orders is table('orders') extend { }"})
	m, err := pkg.GetModel("missing.malloy", false)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestPackage_ManifestDescription(t *testing.T) {
	pkg := newTestPackage(t, map[string]string{
		"publisher.json": `{"description": "order analytics"}`,
		"orders.malloy":  "source: orders is table('orders') extend { }",
	})
	snap := pkg.GetPackageMetadata()
	assert.Equal(t, "order analytics", snap.Description)
}

func TestPackage_ListDatabases(t *testing.T) {
	pkg := newTestPackage(t, map[string]string{
		"data/orders.parquet": "binary-stand-in",
		"orders.malloy":       "source: orders is table('orders') extend { }",
	})
	dbs, err := pkg.ListDatabases()
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "data/orders.parquet", dbs[0].Path)
}

func TestPackage_ListDatabases_CSVCollectsSchemaAndRowCount(t *testing.T) {
	pkg := newTestPackage(t, map[string]string{
		"data/orders.csv": "id,amount\n1,10.50\n2,20.00\n",
		"orders.malloy":   "source: orders is table('orders') extend { }",
	})
	dbs, err := pkg.ListDatabases()
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "data/orders.csv", dbs[0].Path)
	assert.EqualValues(t, 2, dbs[0].Info.RowCount)
	require.Len(t, dbs[0].Info.Columns, 2)
	assert.Equal(t, "id", dbs[0].Info.Columns[0].Name)
	assert.Equal(t, "amount", dbs[0].Info.Columns[1].Name)
}

func TestPackage_ListSchedulesAbsentIsEmpty(t *testing.T) {
	pkg := newTestPackage(t, map[string]string{"orders.malloy": "source: orders is table('orders') extend { }"})
	schedules, err := pkg.ListSchedules()
	require.NoError(t, err)
	assert.Empty(t, schedules)
}

func TestPackage_GetModelFileText(t *testing.T) {
	pkg := newTestPackage(t, map[string]string{"orders.malloy": "source: orders is table('orders') extend { }"})
	text, err := pkg.GetModelFileText("orders.malloy")
	require.NoError(t, err)
	assert.Contains(t, string(text), "source: orders")
}
